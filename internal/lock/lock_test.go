package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func TestRedisLockerExclusive(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	ctx := context.Background()
	a, b := NewRedisLocker(rdb), NewRedisLocker(rdb)

	release, ok, err := a.TryLock(ctx, "scheduler", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("lock:scheduler"))

	_, ok, err = b.TryLock(ctx, "scheduler", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("lock:scheduler"))

	_, ok, err = b.TryLock(ctx, "scheduler", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	ctx := context.Background()
	l := NewRedisLocker(rdb)

	release, ok, err := l.TryLock(ctx, "tick", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = l.TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release()
	assert.True(t, mr.Exists("lock:tick"))
}

func TestLocalLockerExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.clock = func() time.Time { return now }

	_, ok, _ := l.TryLock(context.Background(), "k", time.Minute)
	require.True(t, ok)
	_, ok, _ = l.TryLock(context.Background(), "k", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	release, ok, _ := l.TryLock(context.Background(), "k", time.Minute)
	require.True(t, ok)
	release()
	_, ok, _ = l.TryLock(context.Background(), "k", time.Minute)
	assert.True(t, ok)
}
