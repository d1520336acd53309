// Package presence 记录在线用户，空闲超时后自动过期
package presence

import (
	"context"
	"time"
)

// Tracker 在线状态
type Tracker interface {
	// Touch 刷新用户的过期时间
	Touch(ctx context.Context, userID string) error
	// Remove 立即移除用户
	Remove(ctx context.Context, userID string) error
	// Count 当前在线人数
	Count(ctx context.Context) (int, error)
}

type clock func() time.Time
