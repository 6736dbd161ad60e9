package perfcache

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/tushar1003/deckgen/errors"
)

func newTestSharedTier() (*sharedTier[string], *fakeKV, *fakeClock) {
	kv := newFakeKV()
	clock := newFakeClock()
	return newSharedTier[string](kv, clock.Now), kv, clock
}

func TestSharedTierPutGet(t *testing.T) {
	tier, kv, clock := newTestSharedTier()
	ctx := context.Background()

	entry := newEntry("ns:0000000000000001", "value1", time.Hour, 100, clock.Now())
	if err := tier.put(ctx, entry); err != nil {
		t.Fatalf("Expected put to succeed, got %v", err)
	}

	// The backing store forbids ':' in keys.
	if _, ok := kv.data["ns.0000000000000001"]; !ok {
		t.Error("Expected stored key to use the rewritten alphabet")
	}

	got, ok, err := tier.get(ctx, "ns:0000000000000001")
	if err != nil {
		t.Fatalf("Unexpected get error: %v", err)
	}
	if !ok || got.Data != "value1" {
		t.Errorf("Expected hit with value1, got ok=%t", ok)
	}
}

func TestSharedTierStoreFailureIsTransient(t *testing.T) {
	tier, kv, clock := newTestSharedTier()
	ctx := context.Background()
	kv.setFailing(true)

	_, ok, err := tier.get(ctx, "ns:0000000000000001")
	if ok {
		t.Error("Expected miss when the store is down")
	}
	if !errors.Is(err, pkgerrors.ErrTierUnavailable) {
		t.Errorf("Expected ErrTierUnavailable, got %v", err)
	}
	if !pkgerrors.IsTransient(err) {
		t.Errorf("Expected transient classification, got %v", err)
	}

	putErr := tier.put(ctx, newEntry("ns:0000000000000001", "v", time.Hour, 10, clock.Now()))
	if !errors.Is(putErr, pkgerrors.ErrTierUnavailable) || !pkgerrors.IsTransient(putErr) {
		t.Errorf("Expected transient ErrTierUnavailable from put, got %v", putErr)
	}

	removeErr := tier.remove(ctx, "ns:0000000000000001")
	if !errors.Is(removeErr, pkgerrors.ErrTierUnavailable) || !pkgerrors.IsTransient(removeErr) {
		t.Errorf("Expected transient ErrTierUnavailable from remove, got %v", removeErr)
	}
}

func TestSharedTierCorruptEntryRemoved(t *testing.T) {
	tier, kv, _ := newTestSharedTier()
	ctx := context.Background()

	kv.data["ns.0000000000000001"] = []byte("{not json")

	_, ok, err := tier.get(ctx, "ns:0000000000000001")
	if ok {
		t.Error("Expected miss for corrupt entry")
	}
	if !errors.Is(err, pkgerrors.ErrEntryCorrupted) {
		t.Errorf("Expected ErrEntryCorrupted, got %v", err)
	}
	if !pkgerrors.IsInvalid(err) {
		t.Errorf("Expected invalid classification, got %v", err)
	}
	if kv.len() != 0 {
		t.Error("Expected corrupt entry to be deleted from the store")
	}
}

func TestSharedTierExpiredEntryIsPlainMiss(t *testing.T) {
	tier, kv, clock := newTestSharedTier()
	ctx := context.Background()

	entry := newEntry("ns:0000000000000001", "v", time.Minute, 10, clock.Now())
	if err := tier.put(ctx, entry); err != nil {
		t.Fatalf("Unexpected put error: %v", err)
	}
	clock.Advance(2 * time.Minute)

	_, ok, err := tier.get(ctx, "ns:0000000000000001")
	if ok {
		t.Error("Expected miss for expired entry")
	}
	if err != nil {
		t.Errorf("Expected expiry to be a plain miss, got %v", err)
	}
	if kv.len() != 0 {
		t.Error("Expected expired entry to be deleted from the store")
	}
}
