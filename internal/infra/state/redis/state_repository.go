package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yashBhosale/reality-flow/internal/repository"
)

// stateRepository 是 repository.StateRepository 的 Redis 实现。
// 所有 key 带统一前缀，便于多环境共用同一个 Redis 实例。
type stateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewStateRepository 创建基于 Redis 的房间状态镜像。
func NewStateRepository(client *redis.Client, keyPrefix string) repository.StateRepository {
	return &stateRepository{client: client, keyPrefix: keyPrefix}
}

func (r *stateRepository) roomClientsKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:clients", r.keyPrefix, roomID)
}

func (r *stateRepository) roomPlayModeKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:playmode", r.keyPrefix, roomID)
}

func (r *stateRepository) rateLimitKey(key string) string {
	return fmt.Sprintf("%sratelimit:%s", r.keyPrefix, key)
}

// 名册成员编码为 "username|clientID"，两段都不含 '|'。
func rosterMember(username, clientID string) string {
	return username + "|" + clientID
}

func (r *stateRepository) AddClientToRoom(ctx context.Context, roomID, username, clientID string) error {
	err := r.client.SAdd(ctx, r.roomClientsKey(roomID), rosterMember(username, clientID)).Err()
	if err != nil {
		return fmt.Errorf("redis: add client to room: %w", err)
	}
	return nil
}

func (r *stateRepository) RemoveClientFromRoom(ctx context.Context, roomID, username, clientID string) error {
	err := r.client.SRem(ctx, r.roomClientsKey(roomID), rosterMember(username, clientID)).Err()
	if err != nil {
		return fmt.Errorf("redis: remove client from room: %w", err)
	}
	return nil
}

func (r *stateRepository) GetRoomClients(ctx context.Context, roomID string) (map[string][]string, error) {
	members, err := r.client.SMembers(ctx, r.roomClientsKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get room clients: %w", err)
	}
	roster := make(map[string][]string, len(members))
	for _, m := range members {
		parts := strings.SplitN(m, "|", 2)
		if len(parts) != 2 {
			continue
		}
		roster[parts[0]] = append(roster[parts[0]], parts[1])
	}
	return roster, nil
}

func (r *stateRepository) SetPlayMode(ctx context.Context, roomID string, on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	err := r.client.Set(ctx, r.roomPlayModeKey(roomID), value, 0).Err()
	if err != nil {
		return fmt.Errorf("redis: set play mode: %w", err)
	}
	return nil
}

func (r *stateRepository) CleanupRoomState(ctx context.Context, roomID string) error {
	err := r.client.Del(ctx, r.roomClientsKey(roomID), r.roomPlayModeKey(roomID)).Err()
	if err != nil {
		return fmt.Errorf("redis: cleanup room state: %w", err)
	}
	return nil
}

// CheckRateLimit 用 INCR + EXPIRE 实现固定窗口限流，首次计数时设置过期。
func (r *stateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := r.rateLimitKey(key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: check rate limit: %w", err)
	}

	return incr.Val() > int64(limit), nil
}
