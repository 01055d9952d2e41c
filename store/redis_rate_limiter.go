package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RedisRateLimiter counts uploads per user in fixed windows shared by every bot instance.
type RedisRateLimiter struct {
	client *RedisClient
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiter(client *RedisClient, perMinute int) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  perMinute,
		window: time.Minute,
		now:    time.Now,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	bucket := l.now().Unix() / int64(l.window/time.Second)
	key := l.client.generateKey("ratelimit", strconv.FormatInt(userID, 10), strconv.FormatInt(bucket, 10))

	pipe := l.client.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}
