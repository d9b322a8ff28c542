package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPollingOffsetStore(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewPollingOffsetStore(client, "111")
	ctx := context.Background()

	offset, err := store.GetOffset(ctx)
	require.NoError(t, err)
	assert.Zero(t, offset)

	require.NoError(t, store.SaveOffset(ctx, 987654321))
	offset, err = store.GetOffset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), offset)

	require.NoError(t, store.SaveOffset(ctx, 5))
	offset, err = store.GetOffset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), offset, "offset never moves backwards")

	other, err := NewPollingOffsetStore(client, "222").GetOffset(ctx)
	require.NoError(t, err)
	assert.Zero(t, other, "offsets are per bot")
}

func TestPollingOffsetStore_CorruptValue(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set(pollingOffsetPrefix+"111", "garbage"))

	_, err := NewPollingOffsetStore(client, "111").GetOffset(context.Background())
	assert.Error(t, err)
}

func TestAlertDeduplicator(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := NewAlertDeduplicator(client)
	ctx := context.Background()

	ok, err := d.TryAcquire(ctx, AlertTypePaymentError, "ch_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.TryAcquire(ctx, AlertTypePaymentError, "ch_1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second alert for the same charge is suppressed")

	ok, err = d.TryAcquire(ctx, AlertTypePaymentError, "ch_2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = d.TryAcquire(ctx, AlertTypePaymentError, "ch_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "cooldown expired")

	require.NoError(t, d.Clear(ctx, AlertTypePaymentError, "ch_2"))
	ok, err = d.TryAcquire(ctx, AlertTypePaymentError, "ch_2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPaymentLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewPaymentLock(client)
	ctx := context.Background()

	token, ok, err := lock.Acquire(ctx, "ch_1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = lock.Acquire(ctx, "ch_1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A stale token must not release the current holder.
	require.NoError(t, lock.Release(ctx, "ch_1", "someone-else"))
	assert.True(t, mr.Exists(paymentLockPrefix+"ch_1"))

	require.NoError(t, lock.Release(ctx, "ch_1", token))
	assert.False(t, mr.Exists(paymentLockPrefix+"ch_1"))

	_, ok, err = lock.Acquire(ctx, "ch_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPaymentLock_RedisDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	_, ok, err := NewPaymentLock(client).Acquire(context.Background(), "ch_1", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
