// Package lock provides the short-lived mutual exclusion used by the
// scheduler so only one instance scans for due campaigns per tick.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker acquires key for at most ttl. ok is false when someone else holds it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		_ = releaseScript.Run(context.Background(), l.rdb, []string{lockKey}, token).Err()
	}
	return release, true, nil
}

// LocalLocker is the single-process fallback when Redis is not configured.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]time.Time{}, clock: time.Now}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, false, nil
	}
	expires := now.Add(ttl)
	l.held[key] = expires

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key] == expires {
			delete(l.held, key)
		}
	}
	return release, true, nil
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)
