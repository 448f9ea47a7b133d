package ratelimit

import (
	"context"
	"time"
)

// Counter is the Redis surface the limiter needs; pkg/redis.Client satisfies it.
type Counter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RedisLimiter shares windows across API nodes. Key expiry handles eviction.
type RedisLimiter struct {
	counter Counter
}

func NewRedisLimiter(counter Counter) *RedisLimiter {
	return &RedisLimiter{counter: counter}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	allowed, _, err := r.counter.FixedWindowAllow(ctx, key, int64(limit), window)
	if err != nil {
		return false, err
	}
	return allowed, nil
}
