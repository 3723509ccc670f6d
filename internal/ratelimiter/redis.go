package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFixedWindowLimiter shares fixed-window counters between instances.
type RedisFixedWindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisFixedWindowLimiter(client *redis.Client, limit int, window time.Duration) *RedisFixedWindowLimiter {
	return &RedisFixedWindowLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "venuehub:ratelimit",
		now:    time.Now,
	}
}

// windowKey buckets now into the current window so every instance agrees on the key.
func (rl *RedisFixedWindowLimiter) windowKey(key string, now time.Time) (string, time.Time) {
	start := now.Truncate(rl.window)
	return fmt.Sprintf("%s:%s:%d", rl.prefix, key, start.Unix()), start
}

func (rl *RedisFixedWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := rl.now()
	k, start := rl.windowKey(key, now)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	if incr.Val() > int64(rl.limit) {
		return false, start.Add(rl.window).Sub(now), nil
	}
	return true, 0, nil
}
