package owner

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayhan-p/storefront/internal/token"
)

func newTestResolver(t *testing.T) (*Resolver, *token.Manager) {
	t.Helper()
	tokens := token.NewManager("test-secret", time.Hour, 24*time.Hour, 30*24*time.Hour)
	return NewResolver(tokens, false), tokens
}

func TestResolveBearerTokenWins(t *testing.T) {
	resolver, tokens := newTestResolver(t)
	userID := uuid.New()
	access, err := tokens.AccessToken(userID)
	require.NoError(t, err)
	guest, err := tokens.GuestToken()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/carts/current", nil)
	r.Header.Set("Authorization", "Bearer "+access)
	r.AddCookie(&http.Cookie{Name: GuestCookieName, Value: guest})
	w := httptest.NewRecorder()

	resolved, err := resolver.Resolve(w, r)
	require.NoError(t, err)
	assert.True(t, resolved.IsUser())
	assert.Equal(t, userID, resolved.UserID())

	cleared := false
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == GuestCookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "guest cookie should be cleared for logged-in requests")
}

func TestResolveExistingGuestCookieReused(t *testing.T) {
	resolver, tokens := newTestResolver(t)
	guest, err := tokens.GuestToken()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/carts/current", nil)
	r.AddCookie(&http.Cookie{Name: GuestCookieName, Value: guest})
	w := httptest.NewRecorder()

	resolved, err := resolver.Resolve(w, r)
	require.NoError(t, err)
	assert.False(t, resolved.IsUser())
	assert.Equal(t, guest, resolved.GuestToken())
	assert.Empty(t, w.Result().Cookies(), "a valid guest cookie should not be reissued")
}

func TestResolveMintsGuestTokenWhenCookieMissing(t *testing.T) {
	resolver, tokens := newTestResolver(t)

	r := httptest.NewRequest(http.MethodGet, "/carts/current", nil)
	w := httptest.NewRecorder()

	resolved, err := resolver.Resolve(w, r)
	require.NoError(t, err)
	assert.False(t, resolved.IsUser())
	assert.True(t, tokens.IsValidGuestToken(resolved.GuestToken()))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, GuestCookieName, cookies[0].Name)
	assert.Equal(t, resolved.GuestToken(), cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestResolveInvalidGuestCookieReplaced(t *testing.T) {
	resolver, _ := newTestResolver(t)

	r := httptest.NewRequest(http.MethodGet, "/carts/current", nil)
	r.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "not-a-jwt"})
	w := httptest.NewRecorder()

	resolved, err := resolver.Resolve(w, r)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-jwt", resolved.GuestToken())
	require.Len(t, w.Result().Cookies(), 1)
}

func TestResolveUserTokenInCookieNotAccepted(t *testing.T) {
	resolver, tokens := newTestResolver(t)
	access, err := tokens.AccessToken(uuid.New())
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/carts/current", nil)
	r.AddCookie(&http.Cookie{Name: GuestCookieName, Value: access})
	w := httptest.NewRecorder()

	resolved, err := resolver.Resolve(w, r)
	require.NoError(t, err)
	assert.NotEqual(t, access, resolved.GuestToken())
}

func TestGuestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	assert.Empty(t, GuestTokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "raw-value"})
	assert.Equal(t, "raw-value", GuestTokenFromRequest(r))
}
