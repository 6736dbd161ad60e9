package perfcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tushar1003/deckgen/errors"
	"github.com/tushar1003/deckgen/natsclient"
)

// KeyValuer is the seam between the shared tier and its backing store. The
// production implementation is backed by NATS JetStream KV; tests substitute
// an in-memory fake.
//
// Get reports found=false for missing keys without an error. Any non-nil
// error means the store itself failed.
type KeyValuer interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// sharedTier is the optional network-backed tier. Its operations return
// classified errors; the orchestrator logs them and downgrades every
// failure to a miss (reads) or a false result (writes). Shared-tier trouble
// must never surface to callers.
//
// The backing store forbids ':' in keys, so canonical keys are rewritten
// with '.' before every operation.
type sharedTier[V any] struct {
	kv  KeyValuer
	now func() time.Time
}

func newSharedTier[V any](kv KeyValuer, now func() time.Time) *sharedTier[V] {
	return &sharedTier[V]{kv: kv, now: now}
}

// sharedKey rewrites a canonical cache key into the backing store's key
// alphabet.
func sharedKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

// get fetches and decodes an entry. Corrupt entries are deleted best-effort
// and reported with a classified error; expired entries are deleted and
// reported as a plain miss.
func (s *sharedTier[V]) get(ctx context.Context, key string) (*Entry[V], bool, error) {
	raw, found, err := s.kv.Get(ctx, sharedKey(key))
	if err != nil {
		return nil, false, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"sharedTier", "get", "fetch entry")
	}
	if !found {
		return nil, false, nil
	}

	var entry Entry[V]
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.removeQuiet(ctx, key)
		return nil, false, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrEntryCorrupted, err),
			"sharedTier", "get", "decode entry")
	}

	if entry.IsExpired(s.now()) {
		s.removeQuiet(ctx, key)
		return nil, false, nil
	}

	return &entry, true, nil
}

// put serializes and stores an entry.
func (s *sharedTier[V]) put(ctx context.Context, entry *Entry[V]) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrSerializationFailed, err),
			"sharedTier", "put", "encode entry")
	}

	if err := s.kv.Put(ctx, sharedKey(entry.Key), raw); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"sharedTier", "put", "store entry")
	}
	return nil
}

// remove deletes a key. A missing key counts as success.
func (s *sharedTier[V]) remove(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, sharedKey(key)); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTierUnavailable, err),
			"sharedTier", "remove", "delete entry")
	}
	return nil
}

// removeQuiet deletes a key best-effort during read-side cleanup.
func (s *sharedTier[V]) removeQuiet(ctx context.Context, key string) {
	_ = s.kv.Delete(ctx, sharedKey(key))
}

// natsKeyValuer adapts a natsclient.KVStore to the KeyValuer seam.
type natsKeyValuer struct {
	store *natsclient.KVStore
}

// NewNATSKeyValuer wraps a NATS-backed KV store for use as the shared tier.
func NewNATSKeyValuer(store *natsclient.KVStore) KeyValuer {
	return &natsKeyValuer{store: store}
}

func (n *natsKeyValuer) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := n.store.Get(ctx, key)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (n *natsKeyValuer) Put(ctx context.Context, key string, value []byte) error {
	_, err := n.store.Put(ctx, key, value)
	return err
}

func (n *natsKeyValuer) Delete(ctx context.Context, key string) error {
	err := n.store.Delete(ctx, key)
	if err != nil && !natsclient.IsKVNotFoundError(err) {
		return err
	}
	return nil
}
