package cache

import (
	"context"
	"sync"
	"time"
)

// Locker hands out expiring, token-owned locks keyed by string.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

var (
	_ Locker = (*RedisClient)(nil)
	_ Locker = (*LocalLocker)(nil)
)

// LocalLocker is the in-process Locker used when no redis is configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localLock
	now  func() time.Time
}

type localLock struct {
	value   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localLock),
		now:  time.Now,
	}
}

func (l *LocalLocker) AcquireLock(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return false, nil
	}
	l.held[key] = localLock{value: value, expires: now.Add(ttl)}
	return true, nil
}

func (l *LocalLocker) ReleaseLock(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[key]; ok && cur.value == value {
		delete(l.held, key)
	}
	return nil
}

// Store is a string key/value cache with pattern invalidation.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

var _ Store = (*RedisClient)(nil)
