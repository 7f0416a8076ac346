package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rayhan-p/storefront/internal/log"
)

const (
	loginAttemptLimit     = 10
	loginAttemptWindow    = time.Minute
	loginAttemptKeyPrefix = "security:login-attempts:"
)

type attemptWindow struct {
	count   int64
	resetAt time.Time
}

// LoginRateLimiter caps login attempts per client to a fixed window counter
// in redis. When redis is unreachable the limiter degrades to an in-process
// map with the same limit, so a cache outage never opens the door to
// unthrottled credential guessing.
type LoginRateLimiter struct {
	cache  *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	local map[string]attemptWindow
}

func NewLoginRateLimiter(cache *redis.Client) *LoginRateLimiter {
	return &LoginRateLimiter{
		cache:  cache,
		limit:  loginAttemptLimit,
		window: loginAttemptWindow,
		now:    time.Now,
		local:  map[string]attemptWindow{},
	}
}

func (l *LoginRateLimiter) IsAllowed(c context.Context, clientKey string) bool {
	key := loginAttemptKeyPrefix + clientKey

	if l.cache != nil {
		// ExpireNX on every increment so a counter whose expiry was lost
		// re-arms on the next attempt instead of counting forever.
		pipe := l.cache.TxPipeline()
		incr := pipe.Incr(c, key)
		pipe.ExpireNX(c, key, l.window)
		_, err := pipe.Exec(c)
		if err == nil {
			return incr.Val() <= l.limit
		}
		zerolog.Ctx(c).Warn().
			Err(err).
			Str(log.KeyCacheKey, key).
			Msg("redis unavailable, falling back to in-process login limiter")
	}

	return l.isAllowedLocally(key)
}

func (l *LoginRateLimiter) isAllowedLocally(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, w := range l.local {
		if now.After(w.resetAt) {
			delete(l.local, k)
		}
	}

	w, ok := l.local[key]
	if !ok || now.After(w.resetAt) {
		w = attemptWindow{resetAt: now.Add(l.window)}
	}
	w.count++
	l.local[key] = w
	return w.count <= l.limit
}
