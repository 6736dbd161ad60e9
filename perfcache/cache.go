package perfcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tushar1003/deckgen/errors"
	"github.com/tushar1003/deckgen/metric"
)

// Cache is a multi-tier cache: an in-process memory tier under a byte
// budget, an optional network-backed shared tier, and a persistent on-disk
// tier. Reads fall through the tiers in that order and promote hits back
// up; writes go through to every tier.
//
// The cache is fail-open: tier failures degrade to misses and soft write
// failures, they never abort the caller.
type Cache[V any] struct {
	config   Config
	logger   *slog.Logger
	stats    *Statistics
	metrics  *cacheMetrics
	registry *PolicyRegistry
	now      func() time.Time

	memory *memoryTier[V]
	shared *sharedTier[V]
	file   *fileTier[V]

	// option staging, consumed by New
	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
	keyValuer       KeyValuer

	cleanupRunning bool
	shutdown       chan struct{}
	done           chan struct{}
	closeOnce      sync.Once
}

// New creates a cache from the given configuration. The context bounds the
// background cleanup loop: when it is cancelled the loop stops.
//
// A disabled configuration yields a cache whose operations are all no-ops.
func New[V any](ctx context.Context, config Config, opts ...Option[V]) (*Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Cache[V]{
		config:   config,
		logger:   slog.Default(),
		stats:    NewStatistics(),
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if !config.Enabled {
		c.logger.Info("cache disabled, all operations are no-ops")
		return c, nil
	}

	if c.metricsRegistry != nil {
		metrics, err := newCacheMetrics(c.metricsRegistry, c.metricsPrefix)
		if err != nil {
			return nil, errors.WrapFatal(err, "perfcache", "New", "register metrics")
		}
		c.metrics = metrics
	}

	c.registry = NewPolicyRegistry(config.policies())
	c.memory = newMemoryTier[V](config.MemoryBudgetBytes, c.stats, c.metrics, func() time.Time { return c.now() })

	file, err := newFileTier[V](config.CacheDir, func() time.Time { return c.now() })
	if err != nil {
		return nil, errors.WrapFatal(err, "perfcache", "New", "create cache directory")
	}
	c.file = file

	if c.keyValuer != nil {
		c.shared = newSharedTier[V](c.keyValuer, func() time.Time { return c.now() })
	}

	if config.CleanupInterval > 0 {
		c.cleanupRunning = true
		go c.cleanupLoop(ctx)
	}

	c.logger.Info("cache initialized",
		"memory_budget_bytes", config.MemoryBudgetBytes,
		"cache_dir", config.CacheDir,
		"shared_tier", c.shared != nil,
		"cleanup_interval", config.CleanupInterval)
	return c, nil
}

// Get returns the cached value for (namespace, keyData). The boolean reports
// whether a fresh value was found; a legitimately cached zero value is
// therefore distinguishable from a miss.
func (c *Cache[V]) Get(ctx context.Context, namespace string, keyData any) (V, bool) {
	var zero V
	if !c.config.Enabled {
		return zero, false
	}

	key, err := DeriveKey(namespace, keyData)
	if err != nil {
		c.logger.Warn("key derivation failed", "namespace", namespace, "error", err)
		c.recordMiss()
		return zero, false
	}

	if entry, ok := c.memory.get(key); ok {
		c.stats.MemoryHit()
		if c.metrics != nil {
			c.metrics.recordMemoryHit()
		}
		return entry.Data, true
	}

	policy := c.registry.Lookup(namespace)

	if c.shared != nil {
		sctx, cancel := c.opContext(ctx)
		entry, ok, err := c.shared.get(sctx, key)
		cancel()
		if err != nil {
			c.logTierError("shared", "get", namespace, key, err)
		}
		if ok {
			entry.Touch(c.now())
			c.memoryPut(entry, namespace, policy.MaxEntryBytes)
			c.stats.SharedHit()
			if c.metrics != nil {
				c.metrics.recordSharedHit()
			}
			return entry.Data, true
		}
	}

	entry, ok, err := c.file.get(key)
	if err != nil {
		c.logTierError("file", "get", namespace, key, err)
	}
	if ok {
		entry.Touch(c.now())
		// Promote the slower tiers first: the entry must not be mutated
		// or serialized after it is published to the memory tier.
		if c.shared != nil {
			sctx, cancel := c.opContext(ctx)
			if err := c.shared.put(sctx, entry); err != nil {
				c.logTierError("shared", "put", namespace, key, err)
			}
			cancel()
		}
		c.memoryPut(entry, namespace, policy.MaxEntryBytes)
		c.stats.FileHit()
		if c.metrics != nil {
			c.metrics.recordFileHit()
		}
		return entry.Data, true
	}

	c.recordMiss()
	return zero, false
}

// GetOrDefault returns the cached value, or def when no fresh value exists.
func (c *Cache[V]) GetOrDefault(ctx context.Context, namespace string, keyData any, def V) V {
	if value, ok := c.Get(ctx, namespace, keyData); ok {
		return value
	}
	return def
}

// SetOption configures a single Set call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl time.Duration
}

// WithTTL overrides the namespace's default TTL for this write.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
	}
}

// Set writes a value through to every tier. Each tier's write is attempted
// regardless of the others' outcome. Set returns true only if every tier
// write succeeded: a false return means the value is not durably retrievable
// everywhere, though it may still be served from the tiers that accepted it.
func (c *Cache[V]) Set(ctx context.Context, namespace string, keyData any, value V, opts ...SetOption) bool {
	if !c.config.Enabled {
		return true
	}

	var options setOptions
	for _, opt := range opts {
		opt(&options)
	}

	key, err := DeriveKey(namespace, keyData)
	if err != nil {
		c.logger.Warn("key derivation failed", "namespace", namespace, "error", err)
		return false
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("value serialization failed", "namespace", namespace, "key", key, "error", err)
		return false
	}

	policy := c.registry.Lookup(namespace)
	ttl := options.ttl
	if ttl <= 0 {
		ttl = policy.DefaultTTL
	}

	entry := newEntry(key, value, ttl, int64(len(raw)), c.now())

	sharedOK := true
	if c.shared != nil {
		sctx, cancel := c.opContext(ctx)
		if err := c.shared.put(sctx, entry); err != nil {
			c.logTierError("shared", "put", namespace, key, err)
			sharedOK = false
		}
		cancel()
	}

	fileOK := true
	if err := c.file.put(entry); err != nil {
		c.logTierError("file", "put", namespace, key, err)
		fileOK = false
	}

	// Memory last: once published, readers may touch the entry concurrently.
	memoryOK := c.memoryPut(entry, namespace, policy.MaxEntryBytes)

	return memoryOK && sharedOK && fileOK
}

// Delete removes the key from every tier. Deleting an absent key is a
// success; Delete is idempotent.
func (c *Cache[V]) Delete(ctx context.Context, namespace string, keyData any) bool {
	if !c.config.Enabled {
		return true
	}

	key, err := DeriveKey(namespace, keyData)
	if err != nil {
		c.logger.Warn("key derivation failed", "namespace", namespace, "error", err)
		return false
	}

	c.memory.remove(key)

	sharedOK := true
	if c.shared != nil {
		sctx, cancel := c.opContext(ctx)
		if err := c.shared.remove(sctx, key); err != nil {
			c.logTierError("shared", "remove", namespace, key, err)
			sharedOK = false
		}
		cancel()
	}

	fileOK := true
	if err := c.file.remove(key); err != nil {
		c.logTierError("file", "remove", namespace, key, err)
		fileOK = false
	}

	return sharedOK && fileOK
}

// ClearNamespace removes every memory-tier entry and persistent-tier file
// belonging to the namespace. The shared tier cannot be enumerated and is
// not cleared.
func (c *Cache[V]) ClearNamespace(_ context.Context, namespace string) {
	if !c.config.Enabled {
		return
	}

	memoryRemoved := c.memory.removeNamespace(namespace)
	fileRemoved, err := c.file.removeNamespace(namespace)
	if err != nil {
		c.logTierError("file", "removeNamespace", namespace, "", err)
	}
	c.logger.Info("namespace cleared",
		"namespace", namespace,
		"memory_entries_removed", memoryRemoved,
		"files_removed", fileRemoved)
}

// CleanupExpired synchronously sweeps expired entries from the memory and
// persistent tiers. The shared tier expires entries on read.
func (c *Cache[V]) CleanupExpired(_ context.Context) {
	if !c.config.Enabled {
		return
	}

	memoryRemoved := c.memory.sweepExpired()
	fileRemoved, err := c.file.sweepExpired()
	if err != nil {
		c.logTierError("file", "sweepExpired", "", "", err)
	}
	if memoryRemoved > 0 || fileRemoved > 0 {
		c.logger.Info("expired entries removed",
			"memory_entries", memoryRemoved,
			"files", fileRemoved)
	}
}

// Stats returns a point-in-time snapshot of cache statistics.
func (c *Cache[V]) Stats() StatsSummary {
	if !c.config.Enabled {
		return StatsSummary{}
	}
	return c.stats.summarize(c.memory.bytes(), c.memory.entryCount(), c.config.MemoryBudgetBytes)
}

// Close stops the background cleanup loop. Safe to call multiple times.
func (c *Cache[V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.shutdown)
		if c.cleanupRunning {
			<-c.done
		}
	})
	return nil
}

func (c *Cache[V]) cleanupLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.CleanupExpired(ctx)
		}
	}
}

// memoryPut attempts a memory-tier store and reports the outcome. Oversized
// entries are an expected admission decision, logged at debug.
func (c *Cache[V]) memoryPut(entry *Entry[V], namespace string, maxEntryBytes int64) bool {
	if err := c.memory.put(entry, maxEntryBytes); err != nil {
		c.logger.Debug("memory tier rejected entry",
			"namespace", namespace, "key", entry.Key,
			"size_bytes", entry.SizeBytes, "error", err)
		return false
	}
	return true
}

// logTierError records a degraded tier operation. Tier failures never
// propagate to callers; this log line is the only trace they leave.
func (c *Cache[V]) logTierError(tier, op, namespace, key string, err error) {
	c.logger.Warn("cache tier operation failed",
		"tier", tier, "op", op,
		"namespace", namespace, "key", key,
		"error_class", errors.Classify(err).String(),
		"error", err)
}

func (c *Cache[V]) recordMiss() {
	c.stats.Miss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
}

// opContext bounds a shared-tier operation by the configured timeout.
func (c *Cache[V]) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.OpTimeout > 0 {
		return context.WithTimeout(ctx, c.config.OpTimeout)
	}
	return ctx, func() {}
}
