package service

import (
	"context"
	"time"

	"gamepay/internal/logger"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker 按订单串行化回调处理, 返回的 unlock 必须调用
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NopLocker 单实例部署时使用, 并发安全由条件更新保证
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// RedisLocker 基于 redsync 的分布式锁
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewRedisLocker(rdb *redis.Client, expiry time.Duration) *RedisLocker {
	if expiry <= 0 {
		expiry = 10 * time.Second
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(rdb)),
		expiry: expiry,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		"gamepay:lock:"+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(32),
		redsync.WithRetryDelay(100*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			logger.FromContext(ctx).Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
