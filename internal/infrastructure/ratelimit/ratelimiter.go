// Package ratelimit throttles callers of the HTTP surface with Redis sliding windows.
package ratelimit

import (
	"context"
	"time"
)

// Config sets the allowance per window. A zero limit disables that window.
type Config struct {
	RequestsPerMinute int
	RequestsPerHour   int
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, cfg Config) (bool, error)
	Count(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}
