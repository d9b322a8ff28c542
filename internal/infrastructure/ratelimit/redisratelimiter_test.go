package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) (*RedisRateLimiter, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewRedisRateLimiter(client)
	l.now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
	return l, &now
}

func TestRedisRateLimiter_PerMinute(t *testing.T) {
	l, _ := newLimiter(t)
	ctx := context.Background()
	cfg := Config{RequestsPerMinute: 3}

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(ctx, "1.2.3.4", cfg)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}
	allowed, err := l.Allow(ctx, "1.2.3.4", cfg)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = l.Allow(ctx, "5.6.7.8", cfg)
	require.NoError(t, err)
	assert.True(t, allowed, "other keys are independent")
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	l, now := newLimiter(t)
	ctx := context.Background()
	cfg := Config{RequestsPerMinute: 1}

	allowed, err := l.Allow(ctx, "k", cfg)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, err = l.Allow(ctx, "k", cfg)
	require.NoError(t, err)
	require.False(t, allowed)

	*now = now.Add(2 * time.Minute)
	allowed, err = l.Allow(ctx, "k", cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_HourLimitAppliesAcrossMinutes(t *testing.T) {
	l, now := newLimiter(t)
	ctx := context.Background()
	cfg := Config{RequestsPerMinute: 10, RequestsPerHour: 2}

	for i := 0; i < 2; i++ {
		allowed, err := l.Allow(ctx, "k", cfg)
		require.NoError(t, err)
		require.True(t, allowed)
		*now = now.Add(2 * time.Minute)
	}
	allowed, err := l.Allow(ctx, "k", cfg)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisRateLimiter_CountAndReset(t *testing.T) {
	l, _ := newLimiter(t)
	ctx := context.Background()
	cfg := Config{RequestsPerMinute: 5}

	n, err := l.Count(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 3; i++ {
		_, err := l.Allow(ctx, "k", cfg)
		require.NoError(t, err)
	}
	n, err = l.Count(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, l.Reset(ctx, "k"))
	n, err = l.Count(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}
