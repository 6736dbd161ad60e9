package perfcache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tushar1003/deckgen/errors"
)

// memoryTier is the in-process cache tier. It holds entries up to a global
// byte budget and evicts least-recently-accessed entries when a new entry
// would exceed it.
//
// All map and size-counter mutations happen under one exclusive critical
// section per tier instance. The lock is never held across shared-tier or
// persistent-tier I/O.
type memoryTier[V any] struct {
	mu           sync.Mutex
	budget       int64
	currentBytes int64
	entries      map[string]*Entry[V]
	stats        *Statistics
	metrics      *cacheMetrics
	now          func() time.Time
}

func newMemoryTier[V any](budget int64, stats *Statistics, metrics *cacheMetrics, now func() time.Time) *memoryTier[V] {
	return &memoryTier[V]{
		budget:  budget,
		entries: make(map[string]*Entry[V]),
		stats:   stats,
		metrics: metrics,
		now:     now,
	}
}

// get returns the entry for key if present and fresh, updating its access
// bookkeeping. An expired entry is removed, its accounted size freed, and
// reported as a miss.
func (m *memoryTier[V]) get(key string) (*Entry[V], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}

	if entry.IsExpired(m.now()) {
		m.removeLocked(key)
		return nil, false
	}

	entry.Touch(m.now())
	return entry, true
}

// put stores an entry, rejecting it when its size exceeds maxEntryBytes (the
// namespace cap) or the global budget. Rejection never mutates tier state.
// When accepting the entry would exceed the budget, least-recently-accessed
// entries are evicted first.
func (m *memoryTier[V]) put(entry *Entry[V], maxEntryBytes int64) error {
	if maxEntryBytes > 0 && entry.SizeBytes > maxEntryBytes {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d bytes exceeds namespace cap %d", errors.ErrEntryOversized, entry.SizeBytes, maxEntryBytes),
			"memoryTier", "put", "admit entry")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// An entry bigger than the whole budget can never fit.
	if entry.SizeBytes > m.budget {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d bytes exceeds memory budget %d", errors.ErrEntryOversized, entry.SizeBytes, m.budget),
			"memoryTier", "put", "admit entry")
	}

	m.removeLocked(entry.Key)

	if required := m.currentBytes + entry.SizeBytes - m.budget; required > 0 {
		m.evictLocked(required)
	}

	m.entries[entry.Key] = entry
	m.currentBytes += entry.SizeBytes
	m.updateGaugesLocked()
	return nil
}

// evictLocked removes least-recently-accessed entries until freed >= required.
// Caller must hold the mutex.
func (m *memoryTier[V]) evictLocked(required int64) {
	candidates := make([]*Entry[V], 0, len(m.entries))
	for _, entry := range m.entries {
		candidates = append(candidates, entry)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].AccessedAt.Before(candidates[j].AccessedAt)
	})

	var freed int64
	for _, entry := range candidates {
		if freed >= required {
			break
		}
		freed += entry.SizeBytes
		m.removeLocked(entry.Key)
		m.stats.Eviction()
		if m.metrics != nil {
			m.metrics.recordEviction()
		}
	}
}

// remove deletes an entry by key. Returns true if the key was present.
func (m *memoryTier[V]) remove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[key]
	if ok {
		m.removeLocked(key)
	}
	return ok
}

// removeNamespace deletes every entry belonging to the namespace. Returns
// the number of entries removed.
func (m *memoryTier[V]) removeNamespace(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		if namespaceOf(key) == namespace {
			m.removeLocked(key)
			removed++
		}
	}
	return removed
}

// sweepExpired removes every expired entry. Returns the number removed.
func (m *memoryTier[V]) sweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if entry.IsExpired(now) {
			m.removeLocked(key)
			removed++
		}
	}
	return removed
}

// removeLocked deletes an entry and frees its accounted size. Caller must
// hold the mutex. Missing keys are a no-op.
func (m *memoryTier[V]) removeLocked(key string) {
	entry, ok := m.entries[key]
	if !ok {
		return
	}
	m.currentBytes -= entry.SizeBytes
	delete(m.entries, key)
	m.updateGaugesLocked()
}

func (m *memoryTier[V]) updateGaugesLocked() {
	if m.metrics != nil {
		m.metrics.updateMemoryUsage(m.currentBytes, len(m.entries))
	}
}

// bytes returns the current accounted size of the tier.
func (m *memoryTier[V]) bytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentBytes
}

// entryCount returns the number of resident entries.
func (m *memoryTier[V]) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
