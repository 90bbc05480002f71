// Package redisstate 提供房间记录和画布缓存在 Redis 中的实现。
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"hiveboard/internal/domain"
	"hiveboard/internal/repository"
)

// RedisRoomRepository 是 RoomRepository 接口的 Redis 实现。
// 每个房间整体序列化成一个 JSON 值，key 形如 "hb:room:<roomId>"。
// 房间状态是半持久的：Redis 的单 key 写入天然满足读己之写，
// 空房间通过 key TTL 在宽限期后自动回收。
type RedisRoomRepository struct {
	client     *redis.Client
	keyPrefix  string
	emptyGrace time.Duration
}

// NewRedisRoomRepository 创建 RedisRoomRepository 实例。
// emptyGrace <= 0 时使用默认宽限期。
func NewRedisRoomRepository(client *redis.Client, keyPrefix string, emptyGrace time.Duration) *RedisRoomRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisRoomRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "hb:" // 默认前缀 "hb:" (hiveboard)
	}
	if emptyGrace <= 0 {
		emptyGrace = repository.EmptyRoomGrace
	}
	return &RedisRoomRepository{
		client:     client,
		keyPrefix:  keyPrefix,
		emptyGrace: emptyGrace,
	}
}

func (r *RedisRoomRepository) roomKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s", r.keyPrefix, roomID)
}

// FindByRoomID 读取并反序列化房间记录
func (r *RedisRoomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	key := r.roomKey(roomID)
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("redis: failed to get room %s from %s: %w", roomID, key, err)
	}
	var room domain.Room
	if err := json.Unmarshal([]byte(raw), &room); err != nil {
		return nil, fmt.Errorf("redis: failed to unmarshal room %s from %s: %w", roomID, key, err)
	}
	return &room, nil
}

// Save 整体写入房间记录。
// 空房间带宽限期 TTL 写入；有活跃连接的房间不设过期。
func (r *RedisRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	key := r.roomKey(room.RoomID)
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal room %s: %w", room.RoomID, err)
	}
	var ttl time.Duration
	if room.Empty() {
		ttl = r.emptyGrace
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to save room %s on key %s: %w", room.RoomID, key, err)
	}
	return nil
}

// Delete 删除房间记录。key 不存在时也返回成功。
func (r *RedisRoomRepository) Delete(ctx context.Context, roomID string) error {
	key := r.roomKey(roomID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete room %s on key %s: %w", roomID, key, err)
	}
	return nil
}

// ListRoomIDs 用 SCAN 枚举现存的房间 key，供后台清扫任务使用。
func (r *RedisRoomRepository) ListRoomIDs(ctx context.Context) ([]string, error) {
	pattern := r.keyPrefix + "room:*"
	prefixLen := len(r.keyPrefix + "room:")

	var ids []string
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: failed to scan room keys with pattern %s: %w", pattern, err)
		}
		for _, key := range keys {
			if len(key) > prefixLen {
				ids = append(ids, key[prefixLen:])
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}
