package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_MutualExclusion(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	first := New(client, nil, "transition", time.Minute)
	second := New(client, nil, "transition", time.Minute)

	ok, err := first.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))

	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_DifferentNamesIndependent(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	transitions := New(client, nil, "transition", time.Minute)
	alerts := New(client, nil, "alerts", time.Minute)

	ok, err := transitions.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = alerts.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ReleaseOnlyOwnToken(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	lock := New(client, nil, "transition", time.Minute)
	ok, err := lock.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A slower sibling that lost ownership must not delete the current
	// holder's key.
	stale := New(client, nil, "transition", time.Minute)
	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("retention:lock:transition"))

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists("retention:lock:transition"))
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	crashed := New(client, nil, "transition", 30*time.Second)
	ok, err := crashed.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed holder never releases; the TTL frees the lock.
	mr.FastForward(time.Minute)

	replacement := New(client, nil, "transition", 30*time.Second)
	ok, err = replacement.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
