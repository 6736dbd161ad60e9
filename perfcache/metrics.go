package perfcache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tushar1003/deckgen/metric"
)

// cacheMetrics holds Prometheus metrics for cache operations.
type cacheMetrics struct {
	memoryHits prometheus.Counter
	sharedHits prometheus.Counter
	fileHits   prometheus.Counter
	misses     prometheus.Counter
	evictions  prometheus.Counter

	memoryBytes   prometheus.Gauge
	memoryEntries prometheus.Gauge
}

// newCacheMetrics creates and registers cache metrics with the provided registry.
func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "deckgen",
			Subsystem:   "perfcache",
			Name:        name,
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "deckgen",
			Subsystem:   "perfcache",
			Name:        name,
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        help,
		})
	}

	m := &cacheMetrics{
		memoryHits:    counter("memory_hits_total", "Total cache hits served by the memory tier"),
		sharedHits:    counter("shared_hits_total", "Total cache hits served by the shared tier"),
		fileHits:      counter("file_hits_total", "Total cache hits served by the persistent tier"),
		misses:        counter("misses_total", "Total requests no tier could serve"),
		evictions:     counter("evictions_total", "Total memory-tier evictions"),
		memoryBytes:   gauge("memory_bytes", "Bytes currently held by the memory tier"),
		memoryEntries: gauge("memory_entries", "Entries currently held by the memory tier"),
	}

	registrations := []struct {
		name      string
		collector prometheus.Collector
	}{
		{"memory_hits", m.memoryHits},
		{"shared_hits", m.sharedHits},
		{"file_hits", m.fileHits},
		{"misses", m.misses},
		{"evictions", m.evictions},
	}
	for _, reg := range registrations {
		if err := registry.RegisterCounter(prefix, reg.name, reg.collector.(prometheus.Counter)); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterGauge(prefix, "memory_bytes", m.memoryBytes); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "memory_entries", m.memoryEntries); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *cacheMetrics) recordMemoryHit() { m.memoryHits.Inc() }
func (m *cacheMetrics) recordSharedHit() { m.sharedHits.Inc() }
func (m *cacheMetrics) recordFileHit()   { m.fileHits.Inc() }
func (m *cacheMetrics) recordMiss()      { m.misses.Inc() }
func (m *cacheMetrics) recordEviction()  { m.evictions.Inc() }

func (m *cacheMetrics) updateMemoryUsage(bytes int64, entries int) {
	m.memoryBytes.Set(float64(bytes))
	m.memoryEntries.Set(float64(entries))
}
