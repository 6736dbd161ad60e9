package perfcache

import (
	"context"
	"fmt"
	"time"
)

// MemoOption configures a memoized function.
type MemoOption[A any] func(*memoOptions[A])

type memoOptions[A any] struct {
	ttl   time.Duration
	keyFn func(A) any
}

// WithMemoTTL overrides the namespace's default TTL for cached results.
func WithMemoTTL[A any](ttl time.Duration) MemoOption[A] {
	return func(o *memoOptions[A]) {
		o.ttl = ttl
	}
}

// WithKeyFunc supplies the key-derivation function for the argument. Use
// this whenever the default stringified key is not a faithful identity for
// the argument, for example NaN-bearing floats or types whose string form
// does not determine their value.
func WithKeyFunc[A any](keyFn func(A) any) MemoOption[A] {
	return func(o *memoOptions[A]) {
		o.keyFn = keyFn
	}
}

// Memoize wraps a computation so that repeated calls with the same argument
// are served from the cache. The name identifies the computation within the
// namespace so that two memoized functions sharing a namespace never collide.
//
// By default the cache key is derived from the name and fmt's "%+v"
// rendering of the argument. Results are cached only on success: an error
// from fn is returned as-is and never cached, so a failed computation is
// retried on the next call.
//
// A legitimately cached zero result is served as a hit; fn is not re-invoked
// for it.
func Memoize[A, R any](cache *Cache[R], namespace, name string, fn func(context.Context, A) (R, error), opts ...MemoOption[A]) func(context.Context, A) (R, error) {
	var options memoOptions[A]
	for _, opt := range opts {
		opt(&options)
	}

	keyData := func(arg A) any {
		if options.keyFn != nil {
			return options.keyFn(arg)
		}
		return fmt.Sprintf("%s|%+v", name, arg)
	}

	return func(ctx context.Context, arg A) (R, error) {
		kd := keyData(arg)

		if value, ok := cache.Get(ctx, namespace, kd); ok {
			return value, nil
		}

		result, err := fn(ctx, arg)
		if err != nil {
			return result, err
		}

		var setOpts []SetOption
		if options.ttl > 0 {
			setOpts = append(setOpts, WithTTL(options.ttl))
		}
		cache.Set(ctx, namespace, kd, result, setOpts...)
		return result, nil
	}
}
