// Package cache provides a small in-memory TTL cache with read-repair. It
// replaces the panel's scattered "JSON-parse localStorage and compare
// timestamps" call sites with one abstraction.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a concurrency-safe key/value cache where each entry carries its own
// deadline. Writers always win; a race between two writers of the same key is
// tolerated, worst case being one redundant refill.
type TTL[K comparable, V any] struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[K]entry[V]
}

func NewTTL[K comparable, V any]() *TTL[K, V] {
	return &TTL[K, V]{
		now:     time.Now,
		entries: make(map[K]entry[V]),
	}
}

// WithClock overrides the time source. Tests use it to expire entries without
// sleeping.
func (c *TTL[K, V]) WithClock(now func() time.Time) *TTL[K, V] {
	c.now = now
	return c
}

// Get returns the cached value if present and not expired. Expired entries
// are evicted on read.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *TTL[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// GetOrFill returns the cached value, or calls fill on a miss/stale entry and
// caches its result. Fill errors are returned without caching, so the next
// read repairs again.
func (c *TTL[K, V]) GetOrFill(ctx context.Context, key K, ttl time.Duration, fill func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fill(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}
