package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"hiveboard/internal/repository"
)

// 缓存的快照只用于加速加入房间时的初始推送，过期后回源数据库即可。
const canvasCacheTTL = 30 * time.Minute

// RedisCanvasCache 是 CanvasCache 接口的 Redis 实现。
type RedisCanvasCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCanvasCache 创建 RedisCanvasCache 实例
func NewRedisCanvasCache(client *redis.Client, keyPrefix string) *RedisCanvasCache {
	if client == nil {
		panic("redis client cannot be nil for RedisCanvasCache")
	}
	if keyPrefix == "" {
		keyPrefix = "hb:"
	}
	return &RedisCanvasCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisCanvasCache) snapshotKey(meetingID string) string {
	return fmt.Sprintf("%scanvas:%s", c.keyPrefix, meetingID)
}

// GetSnapshot 读取缓存的快照，未命中时返回 ErrNotFound
func (c *RedisCanvasCache) GetSnapshot(ctx context.Context, meetingID string) (json.RawMessage, error) {
	key := c.snapshotKey(meetingID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get canvas cache for meeting %s: %w", meetingID, err)
	}
	return json.RawMessage(raw), nil
}

// SetSnapshot 写入缓存
func (c *RedisCanvasCache) SetSnapshot(ctx context.Context, meetingID string, data json.RawMessage) error {
	key := c.snapshotKey(meetingID)
	if err := c.client.Set(ctx, key, []byte(data), canvasCacheTTL).Err(); err != nil {
		return fmt.Errorf("redis: failed to set canvas cache for meeting %s: %w", meetingID, err)
	}
	return nil
}

// Invalidate 删除缓存条目
func (c *RedisCanvasCache) Invalidate(ctx context.Context, meetingID string) error {
	key := c.snapshotKey(meetingID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to invalidate canvas cache for meeting %s: %w", meetingID, err)
	}
	return nil
}
