package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time // zero: never
}

// MemoryCache is a process-local store with the semantics of RedisCache, used in tests and debug mode.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
}

// item returns the live item at key; the caller holds the lock.
func (m *MemoryCache) item(key string) (memoryItem, bool) {
	it, ok := m.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !it.expiresAt.IsZero() && !m.now().Before(it.expiresAt) {
		delete(m.items, key)
		return memoryItem{}, false
	}
	return it, true
}

func (m *MemoryCache) expiry(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return m.now().Add(d)
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.item(key); ok {
		return it.value, nil
	}
	return "", ErrNotFound
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryItem{value: fmt.Sprint(value), expiresAt: m.expiry(expiration)}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.item(key)
	return ok, nil
}

func (m *MemoryCache) Increment(_ context.Context, key string, expiration time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.item(key)
	var n int64
	if ok {
		if _, err := fmt.Sscan(it.value, &n); err != nil {
			return 0, fmt.Errorf("value at %s is not an integer", key)
		}
	} else {
		it.expiresAt = m.expiry(expiration)
	}
	n++
	it.value = fmt.Sprint(n)
	m.items[key] = it
	return n, nil
}

// TTL mirrors redis: -2s for a missing key, -1s for a key without expiration.
func (m *MemoryCache) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.item(key)
	switch {
	case !ok:
		return -2 * time.Second, nil
	case it.expiresAt.IsZero():
		return -1 * time.Second, nil
	default:
		return it.expiresAt.Sub(m.now()), nil
	}
}
