// Package bootstrap 负责装配整个服务：配置、存储、会话追踪、命令注册表、
// WebSocket Hub 和后台 Worker。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yashBhosale/reality-flow/internal/command"
	"github.com/yashBhosale/reality-flow/internal/hub"
	"github.com/yashBhosale/reality-flow/internal/infra/persistence/gormrepo"
	redisstate "github.com/yashBhosale/reality-flow/internal/infra/state/redis"
	"github.com/yashBhosale/reality-flow/internal/infra/setup"
	"github.com/yashBhosale/reality-flow/internal/middleware"
	"github.com/yashBhosale/reality-flow/internal/room"
	"github.com/yashBhosale/reality-flow/internal/session"
	"github.com/yashBhosale/reality-flow/internal/worker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 客户端是 Unity/浏览器编辑器，部署上没有固定 Origin，放开检查
	CheckOrigin: func(r *http.Request) bool { return true },
}

// App 持有服务的全部长生命周期组件。
type App struct {
	cfg    *Config
	log    *logrus.Logger
	db     *gorm.DB
	redis  *redis.Client
	asynq  *asynq.Client
	hub    *hub.Hub
	worker *worker.WorkerServer
	server *http.Server
}

// NewApp 按依赖顺序装配所有组件。任何一步失败都直接返回错误，
// 不允许服务以残缺状态启动。
func NewApp(cfg *Config) (*App, error) {
	logger := NewLogger(cfg)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: init db: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("bootstrap: migrate db: %w", err)
	}

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: init redis: %w", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisOpt)

	userRepo := gormrepo.NewUserRepository(db)
	projectRepo := gormrepo.NewProjectRepository(db)
	objectRepo := gormrepo.NewObjectRepository(db)
	behaviorRepo := gormrepo.NewBehaviorRepository(db)
	stateRepo := redisstate.NewStateRepository(redisClient, cfg.RedisKeyPrefix)

	rooms := room.NewManager()
	tracker := session.NewTracker(rooms, userRepo, projectRepo, stateRepo, asynqClient)
	registry := command.NewRegistry(tracker)
	h := hub.NewHub(registry, tracker)

	workerServer := worker.NewWorkerServer(redisOpt, objectRepo, behaviorRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	wsGroup := router.Group("/")
	wsGroup.Use(middleware.RateLimit(stateRepo, cfg.RateLimitMax, cfg.RateLimitWindow, logger))
	wsGroup.GET("/ws", serveWS(h, logger))

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		cfg:    cfg,
		log:    logger,
		db:     db,
		redis:  redisClient,
		asynq:  asynqClient,
		hub:    h,
		worker: workerServer,
		server: server,
	}, nil
}

// serveWS 把 HTTP 请求升级为 WebSocket 连接并注册到 Hub。
func serveWS(h *hub.Hub, logger *logrus.Logger) gin.HandlerFunc {
	log := logger.WithField("component", "ws_handler")

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithError(err).Warn("Failed to upgrade connection")
			return
		}

		client := hub.NewClient(h, conn, uuid.NewString())
		if !h.QueueMessage(hub.HubMessage{Type: "register", Client: client}) {
			log.WithField("client_id", client.ID()).Error("Hub busy, rejecting connection")
			client.CloseConn()
			return
		}
		client.Run()
	}
}

// Start 启动 Hub、Worker 和 HTTP 服务，阻塞到 HTTP 服务退出。
func (a *App) Start() error {
	go a.hub.Run()
	go a.worker.Start()

	a.log.WithField("port", a.cfg.ServerPort).Info("HTTP server starting...")
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bootstrap: http server: %w", err)
	}
	return nil
}

// Shutdown 按依赖的反方向优雅关停各组件。
func (a *App) Shutdown(ctx context.Context) {
	a.log.Info("Shutting down server...")

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("HTTP server shutdown error")
	}

	a.worker.Shutdown()

	if err := a.asynq.Close(); err != nil {
		a.log.WithError(err).Error("Asynq client close error")
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Error("Redis close error")
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.WithError(err).Error("Database close error")
		}
	}

	a.log.Info("Server exited")
}

// requestLogger 记录每个 HTTP 请求的方法、路径、状态码和耗时。
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("HTTP request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
