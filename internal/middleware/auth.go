package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
	inHttp "github.com/rayhan-p/storefront/internal/http"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/token"
)

type userIdKey struct{}

func UserIDFromContext(c context.Context) (uuid.UUID, bool) {
	id, ok := c.Value(userIdKey{}).(uuid.UUID)
	return id, ok
}

// Auth rejects requests without a valid bearer access token and attaches the
// authenticated user id to the request context.
func Auth(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := r.Context()
			logger := zerolog.Ctx(c).With().Str(log.KeyTag, "middleware Auth").Logger()

			authorization := r.Header.Get("Authorization")
			if authorization == "" {
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
					"status":     "failed",
					"statusCode": http.StatusUnauthorized,
					"message":    inErrors.ErrEmptyAuth.Error(),
				})
				return
			}

			bearer := strings.TrimPrefix(authorization, "Bearer ")
			bearer = strings.TrimPrefix(bearer, "bearer ")
			userID, err := tokens.ParseUserToken(bearer)
			if err != nil {
				logger.Error().Err(err).Msg(inErrors.ErrTokenInvalid.Error())
				inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
					"status":     "failed",
					"statusCode": http.StatusUnauthorized,
					"message":    inErrors.ErrTokenInvalid.Error(),
				})
				return
			}

			c = context.WithValue(c, userIdKey{}, userID)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
