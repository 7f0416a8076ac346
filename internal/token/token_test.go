package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
)

func newTestManager() *Manager {
	return NewManager("test-secret", 30*time.Minute, 7*24*time.Hour, 24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	signed, err := m.AccessToken(userID)
	assert.NoError(t, err)

	parsed, err := m.ParseUserToken(signed)
	assert.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestGuestTokenIsNotAUserToken(t *testing.T) {
	m := newTestManager()

	guest, err := m.GuestToken()
	assert.NoError(t, err)
	assert.True(t, m.IsValidGuestToken(guest))

	_, err = m.ParseUserToken(guest)
	assert.ErrorIs(t, err, inErrors.ErrTokenInvalid)
}

func TestUserTokenIsNotAGuestToken(t *testing.T) {
	m := newTestManager()

	signed, err := m.AccessToken(uuid.New())
	assert.NoError(t, err)
	assert.False(t, m.IsValidGuestToken(signed))
}

func TestExpiredGuestTokenIsInvalid(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Minute, -time.Minute)

	guest, err := m.GuestToken()
	assert.NoError(t, err)
	assert.False(t, m.IsValidGuestToken(guest))
}

func TestTamperedTokenIsInvalid(t *testing.T) {
	m := newTestManager()
	other := NewManager("other-secret", time.Minute, time.Minute, time.Minute)

	guest, err := other.GuestToken()
	assert.NoError(t, err)
	assert.False(t, m.IsValidGuestToken(guest))
	assert.False(t, m.IsValidGuestToken("not-a-jwt"))
	assert.False(t, m.IsValidGuestToken(""))
}
