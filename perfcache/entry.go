package perfcache

import (
	"time"
)

// Entry represents a cached value with its bookkeeping metadata. Entries are
// the unit of storage for every tier: the memory tier holds them directly,
// the shared and persistent tiers hold their JSON serialization.
type Entry[V any] struct {
	Data        V         `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
	AccessedAt  time.Time `json:"accessed_at"`
	AccessCount int64     `json:"access_count"`
	TTLSeconds  int64     `json:"ttl_seconds"`
	SizeBytes   int64     `json:"size_bytes"`
	Key         string    `json:"key"`
}

// IsExpired reports whether the entry has outlived its TTL at the given time.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(time.Duration(e.TTLSeconds) * time.Second))
}

// Touch updates the access bookkeeping of the entry.
func (e *Entry[V]) Touch(now time.Time) {
	e.AccessedAt = now
	e.AccessCount++
}

// newEntry builds an entry for a freshly written value.
func newEntry[V any](key string, value V, ttl time.Duration, sizeBytes int64, now time.Time) *Entry[V] {
	return &Entry[V]{
		Data:       value,
		CreatedAt:  now,
		AccessedAt: now,
		TTLSeconds: int64(ttl / time.Second),
		SizeBytes:  sizeBytes,
		Key:        key,
	}
}
