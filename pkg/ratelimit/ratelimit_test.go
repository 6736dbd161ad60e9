package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/tushar1003/deckgen/errors"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllowWithinBurst(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(GroupGeneration, "user1", "10.0.0.1"),
			"request %d should be within the burst", i+1)
	}
	assert.False(t, limiter.Allow(GroupGeneration, "user1", "10.0.0.1"),
		"fourth generation request in the same minute should be denied")
}

func TestBucketRefills(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		limiter.Allow(GroupGeneration, "user1", "10.0.0.1")
	}
	require.False(t, limiter.Allow(GroupGeneration, "user1", "10.0.0.1"))

	// 3/min means one token every 20 seconds.
	clock.Advance(21 * time.Second)
	assert.True(t, limiter.Allow(GroupGeneration, "user1", "10.0.0.1"))
}

func TestClientsAreIndependent(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		limiter.Allow(GroupGeneration, "user1", "10.0.0.1")
	}
	require.False(t, limiter.Allow(GroupGeneration, "user1", "10.0.0.1"))

	assert.True(t, limiter.Allow(GroupGeneration, "user2", "10.0.0.1"),
		"a different user must have their own bucket")
	assert.True(t, limiter.Allow(GroupGeneration, "user1", "10.0.0.2"),
		"the same user from a different address must have their own bucket")
}

func TestGroupsAreIndependent(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		limiter.Allow(GroupGeneration, "user1", "10.0.0.1")
	}
	require.False(t, limiter.Allow(GroupGeneration, "user1", "10.0.0.1"))

	assert.True(t, limiter.Allow(GroupAPI, "user1", "10.0.0.1"),
		"exhausting one group must not affect another")
}

func TestUnknownGroupFallback(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("unknown_group", "user1", "10.0.0.1"))
	}
	assert.False(t, limiter.Allow("unknown_group", "user1", "10.0.0.1"))
}

func TestCheckReturnsTransientError(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(GroupGeneration, "user1", "10.0.0.1"))
	}

	err := limiter.Check(GroupGeneration, "user1", "10.0.0.1")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err), "rate-limited errors must classify as transient")
}

func TestRetryAfter(t *testing.T) {
	limiter := New()

	assert.Equal(t, 20*time.Second, limiter.RetryAfter(GroupGeneration))
	assert.Equal(t, 6*time.Second, limiter.RetryAfter(GroupAPI))
}

func TestIdlePruning(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now), WithIdleTimeout(10*time.Minute))

	limiter.Allow(GroupAPI, "user1", "10.0.0.1")
	limiter.Allow(GroupAPI, "user2", "10.0.0.2")
	require.Equal(t, 2, limiter.Size())

	clock.Advance(11 * time.Minute)
	limiter.Allow(GroupAPI, "user3", "10.0.0.3")

	assert.Equal(t, 1, limiter.Size(), "idle buckets should be pruned")
}

func TestCustomLimits(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now), WithLimits(map[string]Limit{
		GroupAPI: {Rate: rate.Every(time.Second), Burst: 1},
	}))

	assert.True(t, limiter.Allow(GroupAPI, "user1", "10.0.0.1"))
	assert.False(t, limiter.Allow(GroupAPI, "user1", "10.0.0.1"))
}

func TestAnonymousUserKey(t *testing.T) {
	clock := newManualClock()
	limiter := New(WithClock(clock.Now))

	// Empty and explicit anonymous users share a bucket per address.
	for i := 0; i < 3; i++ {
		limiter.Allow(GroupGeneration, "", "10.0.0.1")
	}
	assert.False(t, limiter.Allow(GroupGeneration, "anonymous", "10.0.0.1"))
}
