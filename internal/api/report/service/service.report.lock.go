package reportsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"daily_ops/internal/common"
)

// RunLocker khóa một phạm vi aggregate để hai trigger không chạy chồng nhau.
// Hàm release trả về luôn gọi được (kể cả khi khóa đã hết hạn).
type RunLocker interface {
	Acquire(ctx context.Context, scope string) (release func(), err error)
}

// RedisRunLocker khóa phân tán bằng redislock
type RedisRunLocker struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
}

// NewRedisRunLocker tạo locker; ttl nên lớn hơn thời gian chạy dài nhất của một batch
func NewRedisRunLocker(rdb redislock.RedisClient, ttl time.Duration) *RedisRunLocker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisRunLocker{client: redislock.New(rdb), ttl: ttl, prefix: "daily_ops:aggregate:"}
}

// Acquire lấy khóa cho scope, đã có khóa → common.ErrRunInProgress
func (l *RedisRunLocker) Acquire(ctx context.Context, scope string) (func(), error) {
	lock, err := l.client.Obtain(ctx, l.prefix+scope, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("scope %s: %w", scope, common.ErrRunInProgress)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain run lock %s: %w", scope, err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(ctx)
	}, nil
}

// lockScope scope khóa theo location ("all" khi chạy mọi location)
func lockScope(locationID string) string {
	if locationID == "" {
		return "all"
	}
	return locationID
}
