package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// 在线用户有序集合，score 为过期时间（毫秒）
const onlineKey = "presence:online"

// RedisTracker 基于 Redis 有序集合的在线状态，多实例共享
type RedisTracker struct {
	client redis.UniversalClient
	idle   time.Duration
	now    clock
}

// NewRedisTracker 创建 Redis 在线状态
func NewRedisTracker(client redis.UniversalClient, idle time.Duration) *RedisTracker {
	return &RedisTracker{client: client, idle: idle, now: time.Now}
}

var _ Tracker = (*RedisTracker)(nil)

// Touch 刷新用户的过期时间
func (t *RedisTracker) Touch(ctx context.Context, userID string) error {
	score := float64(t.now().Add(t.idle).UnixMilli())
	if err := t.client.ZAdd(ctx, onlineKey, redis.Z{Score: score, Member: userID}).Err(); err != nil {
		return fmt.Errorf("failed to touch presence: %w", err)
	}
	return nil
}

// Remove 立即移除用户
func (t *RedisTracker) Remove(ctx context.Context, userID string) error {
	if err := t.client.ZRem(ctx, onlineKey, userID).Err(); err != nil {
		return fmt.Errorf("failed to remove presence: %w", err)
	}
	return nil
}

// Count 清理过期成员后返回在线人数
func (t *RedisTracker) Count(ctx context.Context) (int, error) {
	now := strconv.FormatInt(t.now().UnixMilli(), 10)

	var card *redis.IntCmd
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, onlineKey, "-inf", now)
		card = pipe.ZCard(ctx, onlineKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count presence: %w", err)
	}
	return int(card.Val()), nil
}
