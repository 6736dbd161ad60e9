// Package deckgen provides the caching infrastructure for the presentation
// generation platform: a multi-tier performance cache plus the rate
// limiting and observability plumbing around it.
//
// # Architecture
//
// Requests for expensive artifacts (AI generation responses, template data,
// presentation metadata) flow through a three-tier cache:
//
//	┌─────────────────────────────────────┐
//	│          Memory Tier                │  In-process, byte budget,
//	│   (LRU by last access time)         │  microsecond reads
//	└─────────────────────────────────────┘
//	           ↓ miss / ↑ promote
//	┌─────────────────────────────────────┐
//	│          Shared Tier                │  NATS JetStream KV,
//	│      (optional, cross-process)      │  shared between replicas
//	└─────────────────────────────────────┘
//	           ↓ miss / ↑ promote
//	┌─────────────────────────────────────┐
//	│        Persistent Tier              │  One JSON file per entry,
//	│       (local disk, survives         │  survives restarts
//	│            restarts)                │
//	└─────────────────────────────────────┘
//
// Writes go through to every tier; reads fall through and promote hits
// back up. Namespaces partition the key space with their own TTL and
// per-entry size policies.
//
// # Packages
//
//   - perfcache: the multi-tier cache, key derivation, namespace policies,
//     statistics, and the Memoize wrapper
//   - natsclient: NATS connection management and the KV store wrapper
//     backing the shared tier
//   - metric: Prometheus metrics registry and HTTP exposition
//   - errors: classified error handling (transient/invalid/fatal)
//   - pkg/retry: bounded exponential backoff for connection setup
//   - pkg/ratelimit: per-client token-bucket limits for the service API
//   - cmd/deckgen: the service entry point
//
// The cache is fail-open throughout: tier failures degrade to cache misses
// and soft write failures, never to errors in the calling business logic.
package deckgen
