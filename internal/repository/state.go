package repository

import (
	"context"
	"time"
)

// StateRepository 定义了房间实时状态的外部镜像操作，通常由 Redis 实现。
// 镜像只为观测和跨进程可见性服务：房间内存表始终是权威数据源，
// 镜像写入失败只记录日志，不影响命令结果。
type StateRepository interface {
	// AddClientToRoom 把一个 (用户, 客户端) 对记入房间名册。
	AddClientToRoom(ctx context.Context, roomID, username, clientID string) error

	// RemoveClientFromRoom 把一个 (用户, 客户端) 对移出房间名册。
	RemoveClientFromRoom(ctx context.Context, roomID, username, clientID string) error

	// GetRoomClients 返回房间名册：用户名到客户端 ID 列表的映射。
	GetRoomClients(ctx context.Context, roomID string) (map[string][]string, error)

	// SetPlayMode 记录房间播放模式标志的当前值。
	SetPlayMode(ctx context.Context, roomID string, on bool) error

	// CleanupRoomState 清理房间相关的全部 key (房间销毁后调用)。
	CleanupRoomState(ctx context.Context, roomID string) error

	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 表示超限。
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
