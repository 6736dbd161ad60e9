package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tushar1003/deckgen/errors"
)

func newTestCounter(name string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deckgen",
		Subsystem: "test",
		Name:      name,
		Help:      "test counter",
	})
}

func TestRegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	err := registry.RegisterCounter("perfcache", "hits_total", newTestCounter("hits_total"))
	require.NoError(t, err)

	// Duplicate registration must be rejected
	err = registry.RegisterCounter("perfcache", "hits_total", newTestCounter("hits_total"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterGauge(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "deckgen",
		Subsystem: "test",
		Name:      "memory_bytes",
		Help:      "test gauge",
	})

	require.NoError(t, registry.RegisterGauge("perfcache", "memory_bytes", gauge))
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NoError(t, registry.RegisterCounter("perfcache", "hits_total", newTestCounter("hits_total")))

	assert.True(t, registry.Unregister("perfcache", "hits_total"))
	assert.False(t, registry.Unregister("perfcache", "hits_total"))

	// Re-registration after unregister should succeed
	require.NoError(t, registry.RegisterCounter("perfcache", "hits_total", newTestCounter("hits_total")))
}

func TestServerAddress(t *testing.T) {
	registry := NewMetricsRegistry()
	server := NewServer(0, "", registry)
	assert.Equal(t, "http://localhost:9090/metrics", server.Address())
}
