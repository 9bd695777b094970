// Package ratelimit keeps outbound calls to affiliate network APIs inside
// their published request budgets. Counters live in Redis so every process
// sharing the same credentials draws from one budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/offer-finder/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Limiter is the interface adapters depend on.
type Limiter interface {
	// Allow reports whether one more request under key fits the current window.
	Allow(ctx context.Context, key string) (bool, error)
}

// incrScript increments the window counter and sets its expiry on first use,
// atomically, so a crash between INCR and PEXPIRE cannot leave an immortal key.
var incrScript = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	return current
`)

// RedisLimiter is a fixed-window counter backed by Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisLimiter allows up to limit requests per window for each key.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if window < time.Millisecond {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "ratelimit:",
	}
}

// Allow increments the counter for the current window. A nil limiter, a nil
// client or a non-positive limit always allows. Redis failures fail open:
// the network's own 429 handling is the backstop.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, nil
	}

	windowStart := time.Now().UnixMilli() / l.window.Milliseconds()
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, windowStart)

	n, err := incrScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		logger.Warn("ratelimit: redis unavailable, allowing request", "key", key, "error", err)
		return true, fmt.Errorf("rate limit check for %s: %w", key, err)
	}
	return n <= l.limit, nil
}
