package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newLocalLimiter(at *time.Time) *LoginRateLimiter {
	limiter := NewLoginRateLimiter(nil)
	limiter.now = func() time.Time { return *at }
	return limiter
}

func TestLoginRateLimiterAllowsUpToLimit(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newLocalLimiter(&now)
	c := context.Background()

	for i := 0; i < loginAttemptLimit; i++ {
		assert.True(t, limiter.IsAllowed(c, "10.0.0.1"), "attempt %d should pass", i+1)
	}
	assert.False(t, limiter.IsAllowed(c, "10.0.0.1"), "attempt over the limit is denied")
}

func TestLoginRateLimiterWindowResets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newLocalLimiter(&now)
	c := context.Background()

	for i := 0; i < loginAttemptLimit+3; i++ {
		limiter.IsAllowed(c, "10.0.0.1")
	}
	assert.False(t, limiter.IsAllowed(c, "10.0.0.1"))

	now = now.Add(loginAttemptWindow + time.Second)
	assert.True(t, limiter.IsAllowed(c, "10.0.0.1"), "a fresh window starts clean")
}

func TestLoginRateLimiterKeysAreIndependent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newLocalLimiter(&now)
	c := context.Background()

	for i := 0; i < loginAttemptLimit+1; i++ {
		limiter.IsAllowed(c, "10.0.0.1")
	}
	assert.False(t, limiter.IsAllowed(c, "10.0.0.1"))
	assert.True(t, limiter.IsAllowed(c, "10.0.0.2"), "other clients are unaffected")
}

func TestLoginRateLimiterPurgesExpiredWindows(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newLocalLimiter(&now)
	c := context.Background()

	limiter.IsAllowed(c, "10.0.0.1")
	limiter.IsAllowed(c, "10.0.0.2")
	assert.Len(t, limiter.local, 2)

	now = now.Add(loginAttemptWindow + time.Second)
	limiter.IsAllowed(c, "10.0.0.3")
	assert.Len(t, limiter.local, 1, "expired windows are dropped on the next attempt")
}
