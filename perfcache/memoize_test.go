package perfcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoizeCachesResult(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string](t, testConfig(t))

	calls := 0
	expensive := func(_ context.Context, prompt string) (string, error) {
		calls++
		return "outline for " + prompt, nil
	}

	memoized := Memoize(cache, "gemini_responses", "outline", expensive)

	first, err := memoized(ctx, "q3 report")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := memoized(ctx, "q3 report")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first != second || first != "outline for q3 report" {
		t.Errorf("Expected identical results, got %q and %q", first, second)
	}
	if calls != 1 {
		t.Errorf("Expected 1 underlying call, got %d", calls)
	}
}

func TestMemoizeDistinctArguments(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string](t, testConfig(t))

	calls := 0
	memoized := Memoize(cache, "gemini_responses", "outline",
		func(_ context.Context, prompt string) (string, error) {
			calls++
			return strings.ToUpper(prompt), nil
		})

	if _, err := memoized(ctx, "alpha"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := memoized(ctx, "beta"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 underlying calls for distinct arguments, got %d", calls)
	}
}

func TestMemoizeNameSeparatesFunctions(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string](t, testConfig(t))

	upper := Memoize(cache, "template_data", "upper",
		func(_ context.Context, s string) (string, error) { return strings.ToUpper(s), nil })
	lower := Memoize(cache, "template_data", "lower",
		func(_ context.Context, s string) (string, error) { return strings.ToLower(s), nil })

	up, _ := upper(ctx, "Mixed")
	low, _ := lower(ctx, "Mixed")

	if up != "MIXED" || low != "mixed" {
		t.Errorf("Expected per-function results, got %q and %q", up, low)
	}
}

func TestMemoizeErrorNotCached(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string](t, testConfig(t))

	calls := 0
	flaky := func(_ context.Context, _ string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("upstream timeout")
		}
		return "recovered", nil
	}

	memoized := Memoize(cache, "gemini_responses", "flaky", flaky)

	if _, err := memoized(ctx, "arg"); err == nil {
		t.Fatal("Expected first call to fail")
	}
	result, err := memoized(ctx, "arg")
	if err != nil {
		t.Fatalf("Unexpected error on retry: %v", err)
	}
	if result != "recovered" || calls != 2 {
		t.Errorf("Expected failed result not to be cached, got %q after %d calls", result, calls)
	}
}

func TestMemoizeCustomKeyFunc(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string](t, testConfig(t))

	type request struct {
		ID    string
		Nonce int64 // changes per call, must not affect identity
	}

	calls := 0
	memoized := Memoize(cache, "presentation_metadata", "lookup",
		func(_ context.Context, r request) (string, error) {
			calls++
			return "metadata for " + r.ID, nil
		},
		WithKeyFunc(func(r request) any { return r.ID }))

	memoized(ctx, request{ID: "deck7", Nonce: 1})
	memoized(ctx, request{ID: "deck7", Nonce: 2})

	if calls != 1 {
		t.Errorf("Expected key function to unify calls, got %d calls", calls)
	}
}

func TestMemoizeTTLOverride(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cache := newTestCache[string](t, testConfig(t), WithClock[string](clock.Now))

	calls := 0
	memoized := Memoize(cache, "template_data", "short",
		func(_ context.Context, s string) (string, error) {
			calls++
			return s, nil
		},
		WithMemoTTL[string](time.Minute))

	memoized(ctx, "arg")
	clock.Advance(2 * time.Minute)
	memoized(ctx, "arg")

	if calls != 2 {
		t.Errorf("Expected recomputation after TTL override elapsed, got %d calls", calls)
	}
}

func TestMemoizeZeroResultIsHit(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string](t, testConfig(t))

	calls := 0
	memoized := Memoize(cache, "font_validation", "emptyCheck",
		func(_ context.Context, _ string) (string, error) {
			calls++
			return "", nil
		})

	memoized(ctx, "Arial")
	memoized(ctx, "Arial")

	if calls != 1 {
		t.Errorf("Expected cached empty result to be served as a hit, got %d calls", calls)
	}
}
