package cache

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Value caches one wholesale value, such as a full leaderboard or a catalog
// snapshot. It is safe for concurrent use.
type Value[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock quartz.Clock
	slot  *entry[V]
}

// NewValue creates a single-slot cache. A nil clock means the real wall clock.
func NewValue[V any](ttl time.Duration, clock quartz.Clock) *Value[V] {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Value[V]{ttl: ttl, clock: clock}
}

func (v *Value[V]) fresh() bool {
	return v.slot != nil && v.ttl > 0 && v.clock.Since(v.slot.storedAt) < v.ttl
}

// Get returns the cached value while it is younger than the TTL.
func (v *Value[V]) Get() (V, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.fresh() {
		var zero V
		return zero, false
	}
	return v.slot.value, true
}

// Set replaces the cached value and restarts its TTL.
func (v *Value[V]) Set(value V) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.slot = &entry[V]{value: value, storedAt: v.clock.Now()}
}

// Update rewrites a live value in place without restarting its TTL.
// It reports whether there was a live value to update.
func (v *Value[V]) Update(fn func(V) V) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.fresh() {
		return false
	}
	v.slot.value = fn(v.slot.value)
	return true
}

// Clear empties the slot.
func (v *Value[V]) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.slot = nil
}
