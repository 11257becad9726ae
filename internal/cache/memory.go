// Package cache provides the two-tier store for resolution results and the ephemeral page cache.
package cache

import (
	"sync"
	"time"

	"github.com/samber/mo"
)

type memoryEntry[V any] struct {
	value    V
	expireAt time.Time
}

// Memory is an ephemeral map with per-entry expiry.
type Memory[V any] struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]memoryEntry[V]
}

// NewMemory creates a Memory whose entries live for ttl unless given an earlier expiry.
// A nil clock defaults to time.Now.
func NewMemory[V any](ttl time.Duration, now func() time.Time) *Memory[V] {
	if now == nil {
		now = time.Now
	}
	return &Memory[V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]memoryEntry[V]),
	}
}

// Get returns the value stored under key if it has not expired.
func (m *Memory[V]) Get(key string) mo.Option[V] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expireAt) {
		return mo.None[V]()
	}
	return mo.Some(e.value)
}

// Set stores value under key for the configured TTL.
func (m *Memory[V]) Set(key string, value V) {
	m.SetUntil(key, value, time.Time{})
}

// SetUntil stores value under key until expireAt or the TTL, whichever comes first.
// A zero expireAt means the TTL alone applies.
func (m *Memory[V]) SetUntil(key string, value V, expireAt time.Time) {
	limit := m.now().Add(m.ttl)
	if expireAt.IsZero() || expireAt.After(limit) {
		expireAt = limit
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry[V]{value: value, expireAt: expireAt}
}

// Delete removes key.
func (m *Memory[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Clear removes every entry.
func (m *Memory[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry[V])
}

// Len counts stored entries, expired ones included until the next sweep.
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory[V]) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int
	for k, e := range m.entries {
		if !now.Before(e.expireAt) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}
