package owner

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/token"
)

const GuestCookieName = "guestToken"

// Resolver decides who owns the cart a request acts on. A valid bearer token
// wins; otherwise the guest cookie is used, minting a fresh credential when
// the cookie is absent or no longer verifies.
type Resolver struct {
	tokens        *token.Manager
	secureCookies bool
}

func NewResolver(tokens *token.Manager, secureCookies bool) *Resolver {
	return &Resolver{tokens: tokens, secureCookies: secureCookies}
}

func (s *Resolver) Resolve(w http.ResponseWriter, r *http.Request) (CartOwner, error) {
	logger := zerolog.Ctx(r.Context()).
		With().
		Str(log.KeyTag, "Resolver Resolve").
		Logger()

	if bearer := bearerToken(r); bearer != "" {
		userID, err := s.tokens.ParseUserToken(bearer)
		if err == nil {
			// A logged-in request never keeps a guest cookie around.
			if _, cookieErr := r.Cookie(GuestCookieName); cookieErr == nil {
				s.clearGuestCookie(w)
			}
			return Authenticated(userID), nil
		}
		logger.Debug().Err(err).Msg("bearer token is not a valid user token")
	}

	cookie, err := r.Cookie(GuestCookieName)
	if err == nil && s.tokens.IsValidGuestToken(cookie.Value) {
		return Guest(cookie.Value), nil
	}

	guestToken, err := s.tokens.GuestToken()
	if err != nil {
		return CartOwner{}, fmt.Errorf("failed minting guest token with error=%w", err)
	}
	s.setGuestCookie(w, guestToken)
	logger.Info().Msg("minted new guest credential")
	return Guest(guestToken), nil
}

// GuestTokenFromRequest returns the raw guest cookie value without
// validating it. Login uses it to merge the visitor's cart best-effort.
func GuestTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(GuestCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Resolver) setGuestCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.tokens.GuestTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Resolver) clearGuestCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearGuestCookie removes the guest credential; exposed for the login flow
// after the guest cart has been merged into the user's cart.
func (s *Resolver) ClearGuestCookie(w http.ResponseWriter) {
	s.clearGuestCookie(w)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	for _, prefix := range []string{"Bearer ", "bearer "} {
		if strings.HasPrefix(auth, prefix) {
			return strings.TrimPrefix(auth, prefix)
		}
	}
	return ""
}
