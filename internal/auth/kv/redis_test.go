package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestGetSet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "refresh:user-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "refresh:user-1", "tok-a", time.Minute))
	val, err := store.Get(ctx, "refresh:user-1")
	require.NoError(t, err)
	require.Equal(t, "tok-a", val)

	// Set is an unconditional overwrite; this is the rotation point.
	require.NoError(t, store.Set(ctx, "refresh:user-1", "tok-b", time.Minute))
	val, err = store.Get(ctx, "refresh:user-1")
	require.NoError(t, err)
	require.Equal(t, "tok-b", val)
}

func TestSetTTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "blacklist:tok", "1", time.Minute))

	ttl, err := store.TTL(ctx, "blacklist:tok")
	require.NoError(t, err)
	require.Greater(t, ttl, 50*time.Second)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "blacklist:tok")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIncrAndExpire(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	count, err := store.Incr(ctx, "ratelimit:c:/v1/login")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	require.NoError(t, store.Expire(ctx, "ratelimit:c:/v1/login", time.Minute))

	count, err = store.Incr(ctx, "ratelimit:c:/v1/login")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	// Incrementing must not reset the TTL.
	ttl, err := store.TTL(ctx, "ratelimit:c:/v1/login")
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	mr.FastForward(2 * time.Minute)
	count, err = store.Incr(ctx, "ratelimit:c:/v1/login")
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "counter restarts after window expiry")
}

func TestDelIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "verify:user-1", "fp", time.Minute))
	require.NoError(t, store.Del(ctx, "verify:user-1"))
	require.NoError(t, store.Del(ctx, "verify:user-1"), "deleting an absent key is not an error")
}

func TestTTLMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	ttl, err := store.TTL(context.Background(), "nope")
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), ttl)
}

func TestPing(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	require.Error(t, store.Ping(context.Background()))
}
