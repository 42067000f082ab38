package driven

import "context"

// RateLimiter tracks request counts per key over a time window.
// Counters are shared across concurrent requests for the same key and
// must be updated with a concurrency-safe increment.
type RateLimiter interface {
	// Allow records a hit for key and reports whether the hit is within
	// the configured quota for the current window.
	Allow(ctx context.Context, key string) (bool, error)
}
