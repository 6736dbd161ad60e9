package perfcache

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Statistics tracks cache performance counters. All counters are atomic and
// safe for concurrent updates from any tier.
type Statistics struct {
	hits       atomic.Int64
	misses     atomic.Int64
	memoryHits atomic.Int64
	sharedHits atomic.Int64
	fileHits   atomic.Int64
	evictions  atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// MemoryHit records a hit served from the memory tier.
func (s *Statistics) MemoryHit() {
	s.hits.Add(1)
	s.memoryHits.Add(1)
}

// SharedHit records a hit served from the shared tier.
func (s *Statistics) SharedHit() {
	s.hits.Add(1)
	s.sharedHits.Add(1)
}

// FileHit records a hit served from the persistent tier.
func (s *Statistics) FileHit() {
	s.hits.Add(1)
	s.fileHits.Add(1)
}

// Miss records a request no tier could serve.
func (s *Statistics) Miss() {
	s.misses.Add(1)
}

// Eviction records a memory-tier eviction.
func (s *Statistics) Eviction() {
	s.evictions.Add(1)
}

// Hits returns the total number of cache hits across all tiers.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the total number of cache misses.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Evictions returns the total number of memory-tier evictions.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// HitRatePercent returns hits/(hits+misses)*100, or 0 before any request.
func (s *Statistics) HitRatePercent() float64 {
	hits := s.hits.Load()
	total := hits + s.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets all counters to zero.
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.memoryHits.Store(0)
	s.sharedHits.Store(0)
	s.fileHits.Store(0)
	s.evictions.Store(0)
}

// StatsSummary is a point-in-time snapshot of cache statistics.
type StatsSummary struct {
	Hits               int64   `json:"hits"`
	Misses             int64   `json:"misses"`
	MemoryHits         int64   `json:"memory_hits"`
	SharedHits         int64   `json:"shared_hits"`
	FileHits           int64   `json:"file_hits"`
	Evictions          int64   `json:"evictions"`
	HitRatePercent     float64 `json:"hit_rate_percent"`
	MemoryCacheSize    int64   `json:"memory_cache_size"`
	MemoryCacheEntries int     `json:"memory_cache_entries"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
}

// String renders the summary in a human-readable form for logs.
func (s StatsSummary) String() string {
	return fmt.Sprintf("hits=%d misses=%d hit_rate=%.2f%% memory=%s (%d entries, %.2f%% of budget) evictions=%d",
		s.Hits, s.Misses, s.HitRatePercent,
		humanize.Bytes(uint64(s.MemoryCacheSize)), s.MemoryCacheEntries, s.MemoryUsagePercent,
		s.Evictions)
}

// summarize builds a snapshot from the counters plus memory-tier gauges.
func (s *Statistics) summarize(memoryBytes int64, memoryEntries int, budget int64) StatsSummary {
	usagePercent := 0.0
	if budget > 0 {
		usagePercent = float64(memoryBytes) / float64(budget) * 100
	}
	return StatsSummary{
		Hits:               s.hits.Load(),
		Misses:             s.misses.Load(),
		MemoryHits:         s.memoryHits.Load(),
		SharedHits:         s.sharedHits.Load(),
		FileHits:           s.fileHits.Load(),
		Evictions:          s.evictions.Load(),
		HitRatePercent:     s.HitRatePercent(),
		MemoryCacheSize:    memoryBytes,
		MemoryCacheEntries: memoryEntries,
		MemoryUsagePercent: usagePercent,
	}
}
