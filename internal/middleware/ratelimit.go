package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yashBhosale/reality-flow/internal/repository"
)

// RateLimit 对每个来源 IP 做固定窗口限流，主要保护 WebSocket 升级入口。
// 限流状态放在 Redis 里，多实例部署时共享额度。
func RateLimit(state repository.StateRepository, limit int, window time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	log := logger.WithField("component", "ratelimit")

	return func(c *gin.Context) {
		exceeded, err := state.CheckRateLimit(c.Request.Context(), c.ClientIP(), limit, window)
		if err != nil {
			// 限流器自身故障时放行，避免 Redis 抖动拖垮整个入口
			log.WithError(err).Warn("rate limit check failed, allowing request")
			c.Next()
			return
		}
		if exceeded {
			log.WithField("ip", c.ClientIP()).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
