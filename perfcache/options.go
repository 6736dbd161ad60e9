package perfcache

import (
	"log/slog"
	"time"

	"github.com/tushar1003/deckgen/metric"
)

// Option configures a Cache instance.
type Option[V any] func(*Cache[V])

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return func(c *Cache[V]) {
		c.logger = logger
	}
}

// WithMetrics registers Prometheus metrics for this cache under the given
// component prefix.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(c *Cache[V]) {
		c.metricsRegistry = registry
		c.metricsPrefix = prefix
	}
}

// WithKeyValuer enables the shared tier backed by the given store. Without
// this option the cache runs in two-tier mode and shared-tier operations
// are no-ops that always succeed.
func WithKeyValuer[V any](kv KeyValuer) Option[V] {
	return func(c *Cache[V]) {
		c.keyValuer = kv
	}
}

// WithClock substitutes the time source. Tests use this to simulate expiry
// without sleeping.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}
