package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
)

const (
	Issuer    = "storefront"
	TypeGuest = "guest"
)

type claims struct {
	Type string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies the three credential kinds the store issues:
// access tokens, refresh tokens and guest cart credentials. All are HS256
// jwts; guest credentials carry typ=guest and identify a cart, not a user.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	guestTTL   time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL, guestTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		guestTTL:   guestTTL,
	}
}

func (m *Manager) GuestTTL() time.Duration   { return m.guestTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *Manager) AccessToken(userID uuid.UUID) (string, error) {
	return m.sign(userID.String(), "", m.accessTTL)
}

func (m *Manager) RefreshToken(userID uuid.UUID) (string, error) {
	return m.sign(userID.String(), "", m.refreshTTL)
}

// GuestToken mints a fresh guest credential. The signed string itself is the
// cart owner reference; the random subject only makes every token distinct.
func (m *Manager) GuestToken() (string, error) {
	return m.sign(uuid.NewString(), TypeGuest, m.guestTTL)
}

func (m *Manager) sign(subject, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed signing token with error=%w", err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenString string) (*claims, error) {
	parsed := claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		&parsed,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed parsing with claims with error=%w", err)
	}
	return &parsed, nil
}

// ParseUserToken verifies an access or refresh token and returns its user id.
// Guest credentials never authenticate a user.
func (m *Manager) ParseUserToken(tokenString string) (uuid.UUID, error) {
	parsed, err := m.parse(tokenString)
	if err != nil {
		return uuid.Nil, inErrors.ErrTokenInvalid
	}
	if parsed.Type == TypeGuest {
		return uuid.Nil, inErrors.ErrTokenInvalid
	}
	userID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return uuid.Nil, inErrors.ErrTokenInvalid
	}
	return userID, nil
}

// IsValidGuestToken reports whether tokenString is a signed, unexpired,
// guest-tagged credential. Anything else is treated as absent by callers.
func (m *Manager) IsValidGuestToken(tokenString string) bool {
	if tokenString == "" {
		return false
	}
	parsed, err := m.parse(tokenString)
	if err != nil {
		return false
	}
	return parsed.Type == TypeGuest
}
