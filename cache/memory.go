// ABOUTME: In-process fallback backend for the dual-backend store: a mutex-guarded
// ABOUTME: map of (value, insertion time, ttl) entries with lazy read-time eviction.
package cache

import (
	"sync"
	"time"
)

// entry is one stored value plus the bookkeeping needed for fallback-mode TTL
// enforcement. An entry is logically absent once now-insertedAt >= ttl.
type entry struct {
	data       []byte
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.insertedAt) >= e.ttl
}

// memoryBackend is the in-process store used when the networked backend is
// unavailable. The lock is held only for the duration of a single map
// operation, so the background sweeper never blocks foreground calls for
// longer than one entry's scan-and-delete.
type memoryBackend struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func newMemoryBackend(now func() time.Time) *memoryBackend {
	if now == nil {
		now = time.Now
	}
	return &memoryBackend{entries: make(map[string]entry), now: now}
}

// get returns the stored value, lazily evicting it when expired.
func (m *memoryBackend) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil, false
	}
	return e.data, true
}

func (m *memoryBackend) set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{data: value, insertedAt: m.now(), ttl: ttl}
}

func (m *memoryBackend) delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	return ok
}

func (m *memoryBackend) exists(key string) bool {
	_, ok := m.get(key)
	return ok
}

func (m *memoryBackend) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}

// sweep removes every expired entry and returns the count removed. Keys are
// collected under the lock, then deleted one at a time so foreground readers
// are never held out for the whole scan.
func (m *memoryBackend) sweep() int {
	m.mu.Lock()
	now := m.now()
	var stale []string
	for k, e := range m.entries {
		if e.expired(now) {
			stale = append(stale, k)
		}
	}
	m.mu.Unlock()

	removed := 0
	for _, k := range stale {
		m.mu.Lock()
		if e, ok := m.entries[k]; ok && e.expired(m.now()) {
			delete(m.entries, k)
			removed++
		}
		m.mu.Unlock()
	}
	return removed
}

// stats counts total and expired entries at this instant.
func (m *memoryBackend) stats() (total, expired int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, e := range m.entries {
		if e.expired(now) {
			expired++
		}
	}
	return len(m.entries), expired
}
