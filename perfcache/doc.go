// Package perfcache implements a multi-tier performance cache for expensive
// computations: AI generation responses, template data, metadata lookups.
//
// Values flow through three tiers. The memory tier is an in-process map
// bounded by a byte budget with least-recently-accessed eviction. The shared
// tier is an optional network-backed key-value store (NATS JetStream KV in
// production) so several processes can share results. The persistent tier
// keeps one JSON file per entry on local disk and survives restarts.
//
// Reads check memory, then shared, then disk, promoting hits back into the
// faster tiers. Writes go through to every tier. Namespaces partition the
// key space and carry their own TTL and per-entry size policy.
//
// The cache is fail-open: a broken tier degrades to misses and soft write
// failures. Callers never see a cache error, only the latency of
// recomputing.
package perfcache
