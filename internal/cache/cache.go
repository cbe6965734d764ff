package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"healthbot/internal/logging"
)

// Cache wraps the Redis client used for rate limiting and health checks.
type Cache struct {
	client *redis.Client
}

// New connects to Redis using a redis:// URL.
func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 5 * time.Second
	return &Cache{client: redis.NewClient(opts)}, nil
}

// Ping verifies Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error { return c.client.Close() }

// Limiter is a fixed-window rate limiter keyed on caller identity. When
// Redis is unreachable it fails open: dropping requests because the limiter
// store is down would be worse than briefly not limiting.
type Limiter struct {
	cache    *Cache
	requests int
	window   time.Duration
}

// NewLimiter builds a limiter allowing `requests` per `window`.
func NewLimiter(c *Cache, requests int, window time.Duration) *Limiter {
	return &Limiter{cache: c, requests: requests, window: window}
}

// Allow reports whether the caller identified by key may proceed.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.cache == nil {
		return true
	}
	full := "ratelimit:" + key
	n, err := l.cache.client.Incr(ctx, full).Result()
	if err != nil {
		logging.Module("cache").Warn("rate limiter unavailable", "error", err)
		return true
	}
	if n == 1 {
		if err := l.cache.client.Expire(ctx, full, l.window).Err(); err != nil {
			logging.Module("cache").Warn("rate limiter expire failed", "error", err)
		}
	}
	return n <= int64(l.requests)
}
