package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	inHttp "github.com/rayhan-p/storefront/internal/http"
	"github.com/rayhan-p/storefront/internal/log"
)

type RateLimiter interface {
	IsAllowed(c context.Context, clientKey string) bool
}

// LoginRateLimit throttles the wrapped handler per client ip.
func LoginRateLimit(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := r.Context()
			logger := zerolog.Ctx(c).With().Str(log.KeyTag, "middleware LoginRateLimit").Logger()

			clientKey := resolveClientKey(r)
			if !limiter.IsAllowed(c, clientKey) {
				logger.Warn().
					Str(log.KeyClientKey, clientKey).
					Msg("login rate limit exceeded")
				inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
					"status":     "failed",
					"statusCode": http.StatusTooManyRequests,
					"message":    "Too many login attempts. Please try again in a minute.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func resolveClientKey(r *http.Request) string {
	forwardedFor := r.Header.Get("X-Forwarded-For")
	if forwardedFor != "" {
		return strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
