// Package cache implements the process-local memoization stores used by the
// pricing core: a string-keyed TTL map with LRU eviction, hit/miss
// statistics, and a background sweep for expired entries. State never leaves
// the process; cross-instance coherency is explicitly not provided.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Stats reports cache effectiveness counters.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type entry[V any] struct {
	value          V
	createdAt      time.Time
	expiresAt      time.Time
	lastAccessedAt time.Time
	elem           *list.Element
}

// MemoryConfig groups Memory construction options.
type MemoryConfig struct {
	TTL        time.Duration
	MaxEntries int
	// Now overrides the clock; tests use it to drive TTL expiry.
	Now func() time.Time
}

// Memory is a mutex-guarded in-memory store with TTL expiry and
// least-recently-used eviction once MaxEntries is exceeded.
type Memory[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	entries map[string]*entry[V]
	lru     *list.List // front is most recently used
	hits    uint64
	misses  uint64
}

// NewMemory constructs a Memory store.
func NewMemory[V any](cfg MemoryConfig) *Memory[V] {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Memory[V]{
		ttl:        ttl,
		maxEntries: cfg.MaxEntries,
		now:        now,
		entries:    make(map[string]*entry[V]),
		lru:        list.New(),
	}
}

// Get returns the cached value when present and unexpired.
func (m *Memory[V]) Get(key string) (V, bool) {
	var zero V
	if m == nil {
		return zero, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.entries[key]
	if !ok {
		m.misses++
		return zero, false
	}
	now := m.now()
	if now.After(ent.expiresAt) {
		m.removeLocked(key, ent)
		m.misses++
		return zero, false
	}
	ent.lastAccessedAt = now
	m.lru.MoveToFront(ent.elem)
	m.hits++
	return ent.value, true
}

// Set stores a value with the configured TTL, evicting the least recently
// used entry when the store is full. Writes are last-write-wins.
func (m *Memory[V]) Set(key string, value V) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if ent, ok := m.entries[key]; ok {
		ent.value = value
		ent.createdAt = now
		ent.expiresAt = now.Add(m.ttl)
		ent.lastAccessedAt = now
		m.lru.MoveToFront(ent.elem)
		return
	}
	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	ent := &entry[V]{
		value:          value,
		createdAt:      now,
		expiresAt:      now.Add(m.ttl),
		lastAccessedAt: now,
	}
	ent.elem = m.lru.PushFront(key)
	m.entries[key] = ent
}

// GetOrCompute returns the cached value on a hit; on a miss it runs compute,
// stores the result, and returns it. Compute errors are never cached. There
// is no in-flight deduplication: concurrent misses for the same key each
// compute and the last write wins.
func (m *Memory[V]) GetOrCompute(key string, compute func() (V, error)) (V, bool, error) {
	if v, ok := m.Get(key); ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, false, err
	}
	m.Set(key, v)
	return v, false, nil
}

// Delete removes a single entry.
func (m *Memory[V]) Delete(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ent, ok := m.entries[key]; ok {
		m.removeLocked(key, ent)
	}
}

// Clear drops every entry and resets counters.
func (m *Memory[V]) Clear() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry[V])
	m.lru.Init()
	m.hits = 0
	m.misses = 0
}

// Stats returns a snapshot of the cache counters.
func (m *Memory[V]) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{Entries: len(m.entries), Hits: m.hits, Misses: m.misses}
	if total := m.hits + m.misses; total > 0 {
		s.HitRate = float64(m.hits) / float64(total) * 100
	}
	return s
}

// Sweep removes expired entries and reports how many were dropped.
func (m *Memory[V]) Sweep() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for key, ent := range m.entries {
		if now.After(ent.expiresAt) {
			m.removeLocked(key, ent)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on a fixed interval until ctx is cancelled.
func (m *Memory[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	if m == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

func (m *Memory[V]) removeLocked(key string, ent *entry[V]) {
	m.lru.Remove(ent.elem)
	delete(m.entries, key)
}

func (m *Memory[V]) evictOldestLocked() {
	back := m.lru.Back()
	if back == nil {
		return
	}
	key, ok := back.Value.(string)
	if !ok {
		return
	}
	if ent, found := m.entries[key]; found {
		m.removeLocked(key, ent)
	}
}
