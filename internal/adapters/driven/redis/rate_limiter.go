package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/userstore/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.RateLimiter = (*RateLimiter)(nil)

const ratePrefix = "ratelimit:"

// hitScript is a Lua script for atomic fixed-window counting. It
// increments the window counter and starts the window expiry on the
// first hit, so concurrent callers never observe a counter without a
// deadline.
var hitScript = redis.NewScript(`
	local count = redis.call("incr", KEYS[1])
	if count == 1 then
		redis.call("pexpire", KEYS[1], ARGV[1])
	end
	return count
`)

// RateLimiter enforces a fixed-window request quota per key, with the
// counters held in Redis so they are shared across instances.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit hits per window
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow records a hit for key and reports whether it is within quota.
// The counter recovers automatically once the window elapses.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := hitScript.Run(ctx, l.client, []string{ratePrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return count <= l.limit, nil
}
