// Package ratelimit provides per-client token-bucket rate limiting for the
// generation API. Each (group, user, ip) triple gets its own bucket; groups
// carry their own rate and burst so expensive operations can be throttled
// harder than cheap ones.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tushar1003/deckgen/errors"
)

// Group names used by the generation service.
const (
	GroupGeneration = "presentation_generation"
	GroupAPI        = "api_calls"
	GroupValidation = "validation"
)

// Limit defines the rate and burst for a group.
type Limit struct {
	Rate  rate.Limit
	Burst int
}

// DefaultLimits returns the production group limits.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		GroupGeneration: {Rate: rate.Every(time.Minute / 3), Burst: 3},
		GroupAPI:        {Rate: rate.Every(time.Minute / 10), Burst: 10},
		GroupValidation: {Rate: rate.Every(time.Hour / 50), Burst: 50},
	}
}

// fallbackLimit applies to unknown groups: 60 requests per hour.
var fallbackLimit = Limit{Rate: rate.Every(time.Minute), Burst: 10}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per client key. Buckets idle longer than
// the idle timeout are pruned so the map cannot grow unbounded.
type Limiter struct {
	mu        sync.Mutex
	limits    map[string]Limit
	buckets   map[string]*clientBucket
	idleAfter time.Duration
	lastPrune time.Time
	now       func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLimits overrides the group limit table.
func WithLimits(limits map[string]Limit) Option {
	return func(l *Limiter) {
		for group, limit := range limits {
			l.limits[group] = limit
		}
	}
}

// WithIdleTimeout sets how long an unused client bucket is kept.
func WithIdleTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		l.idleAfter = d
	}
}

// WithClock substitutes the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter seeded with DefaultLimits.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		limits:    DefaultLimits(),
		buckets:   make(map[string]*clientBucket),
		idleAfter: time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastPrune = l.now()
	return l
}

// clientKey builds the bucket key for a client within a group.
func clientKey(group, userID, ip string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return fmt.Sprintf("%s:%s:%s", group, userID, ip)
}

// Allow reports whether the client may proceed, consuming one token if so.
func (l *Limiter) Allow(group, userID, ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	key := clientKey(group, userID, ip)
	bucket, ok := l.buckets[key]
	if !ok {
		limit := l.lookupLocked(group)
		bucket = &clientBucket{limiter: rate.NewLimiter(limit.Rate, limit.Burst)}
		l.buckets[key] = bucket
	}
	bucket.lastSeen = now

	return bucket.limiter.AllowN(now, 1)
}

// Check is Allow with an error result: a denied request yields a transient
// rate-limited error carrying the retry-after hint.
func (l *Limiter) Check(group, userID, ip string) error {
	if l.Allow(group, userID, ip) {
		return nil
	}
	retryAfter := l.RetryAfter(group)
	return errors.WrapTransient(errors.ErrRateLimited, "ratelimit", "Check",
		fmt.Sprintf("group %s exceeded, retry in %s", group, retryAfter))
}

// RetryAfter returns the interval until the group's bucket refills one token.
func (l *Limiter) RetryAfter(group string) time.Duration {
	l.mu.Lock()
	limit := l.lookupLocked(group)
	l.mu.Unlock()

	if limit.Rate <= 0 {
		return time.Hour
	}
	return time.Duration(float64(time.Second) / float64(limit.Rate))
}

func (l *Limiter) lookupLocked(group string) Limit {
	if limit, ok := l.limits[group]; ok {
		return limit
	}
	return fallbackLimit
}

// pruneLocked drops buckets idle beyond the timeout. Runs at most once per
// idle period so steady traffic does not pay a scan per request.
func (l *Limiter) pruneLocked(now time.Time) {
	if l.idleAfter <= 0 || now.Sub(l.lastPrune) < l.idleAfter {
		return
	}
	l.lastPrune = now

	for key, bucket := range l.buckets {
		if now.Sub(bucket.lastSeen) >= l.idleAfter {
			delete(l.buckets, key)
		}
	}
}

// Size returns the number of tracked client buckets.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
