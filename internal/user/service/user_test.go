package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/repository"
	"github.com/rayhan-p/storefront/internal/token"
	"github.com/rayhan-p/storefront/user/pkg/request"
)

type recordingMerger struct {
	calls      int
	guestToken string
	userID     uuid.UUID
	err        error
}

func (m *recordingMerger) MergeGuestIntoUser(
	_ context.Context,
	guestToken string,
	userID uuid.UUID,
) error {
	m.calls++
	m.guestToken = guestToken
	m.userID = userID
	return m.err
}

func newTestUserService(t *testing.T, merger cartMerger) (*UserService, *repository.MemoryUserStore, *token.Manager) {
	t.Helper()
	users := repository.NewMemoryUserStore()
	tokens := token.NewManager("test-secret", time.Hour, 24*time.Hour, 30*24*time.Hour)
	return NewUserService(users, tokens, merger), users, tokens
}

func registerUser(t *testing.T, svc *UserService, email, password string) repository.User {
	t.Helper()
	user, err := svc.Register(context.Background(), request.Register{
		Username: "tester",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, users, _ := newTestUserService(t, nil)
	user := registerUser(t, svc, "a@example.com", "hunter2hunter2")

	stored, err := users.FindUserById(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter2hunter2")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestUserService(t, nil)
	registerUser(t, svc, "a@example.com", "hunter2hunter2")

	_, err := svc.Register(context.Background(), request.Register{
		Username: "other",
		Email:    "a@example.com",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, inErrors.ErrEmailTaken)
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, _, tokens := newTestUserService(t, nil)
	user := registerUser(t, svc, "a@example.com", "hunter2hunter2")

	result, err := svc.Login(context.Background(), request.Login{
		Email:    "a@example.com",
		Password: "hunter2hunter2",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)

	parsed, err := tokens.ParseUserToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)

	parsed, err = tokens.ParseUserToken(result.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc, _, _ := newTestUserService(t, nil)
	registerUser(t, svc, "a@example.com", "hunter2hunter2")

	_, wrongPassword := svc.Login(context.Background(), request.Login{
		Email:    "a@example.com",
		Password: "not-it",
	}, "")
	_, unknownEmail := svc.Login(context.Background(), request.Login{
		Email:    "b@example.com",
		Password: "whatever",
	}, "")

	assert.ErrorIs(t, wrongPassword, inErrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, inErrors.ErrInvalidCredentials)
}

func TestLoginMergesGuestCart(t *testing.T) {
	merger := &recordingMerger{}
	svc, _, _ := newTestUserService(t, merger)
	user := registerUser(t, svc, "a@example.com", "hunter2hunter2")

	_, err := svc.Login(context.Background(), request.Login{
		Email:    "a@example.com",
		Password: "hunter2hunter2",
	}, "guest-credential")
	require.NoError(t, err)
	assert.Equal(t, 1, merger.calls)
	assert.Equal(t, "guest-credential", merger.guestToken)
	assert.Equal(t, user.ID, merger.userID)
}

func TestLoginSucceedsWhenMergeFails(t *testing.T) {
	merger := &recordingMerger{err: errors.New("merge broke")}
	svc, _, _ := newTestUserService(t, merger)
	registerUser(t, svc, "a@example.com", "hunter2hunter2")

	result, err := svc.Login(context.Background(), request.Login{
		Email:    "a@example.com",
		Password: "hunter2hunter2",
	}, "guest-credential")
	require.NoError(t, err, "a cart merge failure never blocks the login")
	assert.NotEmpty(t, result.AccessToken)
}

func TestLoginWithoutGuestTokenSkipsMerge(t *testing.T) {
	merger := &recordingMerger{}
	svc, _, _ := newTestUserService(t, merger)
	registerUser(t, svc, "a@example.com", "hunter2hunter2")

	_, err := svc.Login(context.Background(), request.Login{
		Email:    "a@example.com",
		Password: "hunter2hunter2",
	}, "")
	require.NoError(t, err)
	assert.Zero(t, merger.calls)
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _, tokens := newTestUserService(t, nil)
	user := registerUser(t, svc, "a@example.com", "hunter2hunter2")

	login, err := svc.Login(context.Background(), request.Login{
		Email:    "a@example.com",
		Password: "hunter2hunter2",
	}, "")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)

	parsed, err := tokens.ParseUserToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)
}

func TestRefreshRejectsGarbageAndGuestTokens(t *testing.T) {
	svc, _, tokens := newTestUserService(t, nil)

	_, err := svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, inErrors.ErrTokenInvalid)

	guest, err := tokens.GuestToken()
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), guest)
	assert.ErrorIs(t, err, inErrors.ErrTokenInvalid)
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestUserService(t, nil)
	user := registerUser(t, svc, "a@example.com", "hunter2hunter2")

	found, err := svc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)

	_, err = svc.Me(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrUserNotFound)
}
