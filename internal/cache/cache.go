// Package cache provides a time-to-live cache for expensive derived
// structures: the search index, tag-frequency tables, and aggregate
// analytics.
//
// The cache is deliberately not invalidated on note mutation; a read
// may observe state up to one TTL old. That staleness bound is the
// documented trade-off for a write path that never touches the cache.
// Callers that need read-your-writes after a mutation call Invalidate.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value    any
	cachedAt time.Time
}

// Manager caches computed values per key with an individual TTL.
// Concurrent readers never observe a partially built value: a read
// either returns a complete cached value or blocks computing a fresh
// one.
type Manager struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty Manager using the wall clock.
func New() *Manager {
	return &Manager{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock creates a Manager with an injected clock for tests.
func NewWithClock(now func() time.Time) *Manager {
	m := New()
	m.now = now
	return m
}

// GetOrCompute returns the cached value for key while it is younger
// than ttl, otherwise invokes compute synchronously and caches the
// result with a fresh timestamp. A compute error is returned to the
// caller and nothing is cached, so the next read retries.
func (m *Manager) GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && m.now().Sub(e.cachedAt) < ttl {
		return e.value, nil
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	m.entries[key] = entry{value: v, cachedAt: m.now()}
	return v, nil
}

// Invalidate drops the entry for key so the next read recomputes.
func (m *Manager) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// InvalidateAll drops every entry. Used after a full-collection
// replace (import), where per-key invalidation would be guesswork.
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}

// Fetch is a typed wrapper around Manager.GetOrCompute. The zero value
// of T is returned alongside any compute error.
func Fetch[T any](m *Manager, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	v, err := m.GetOrCompute(key, ttl, func() (any, error) {
		return compute()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
