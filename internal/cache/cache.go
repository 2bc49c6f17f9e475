// Package cache provides the in-process TTL caches used for benchmark
// results, catalog snapshots and the leaderboard, plus an optional Redis
// store that shares benchmark results between instances.
//
// Entries expire purely by comparing the injected clock against the time they
// were stored. There is one slot per key: a Set on an existing key overwrites
// it, and every Set drops entries that have expired. A non-positive TTL
// disables caching, every Get misses.
package cache

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache is a keyed cache with a single expiry window for all entries.
// It is safe for concurrent use.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   quartz.Clock
	entries map[K]entry[V]
}

// New creates a TTLCache. A nil clock means the real wall clock.
func New[K comparable, V any](ttl time.Duration, clock quartz.Clock) *TTLCache[K, V] {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &TTLCache[K, V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[K]entry[V]),
	}
}

// TTL returns the expiry window.
func (c *TTLCache[K, V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[K, V]) fresh(e entry[V]) bool {
	return c.ttl > 0 && c.clock.Since(e.storedAt) < c.ttl
}

// Get returns the value stored for key if it is younger than the TTL.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.fresh(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing whatever was there. Expired entries
// are dropped on the way so keys that are never read again do not pile up.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if !c.fresh(e) {
			delete(c.entries, k)
		}
	}
	if c.ttl <= 0 {
		return
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.clock.Now()}
}
