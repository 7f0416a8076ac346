package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/repository"
	"github.com/rayhan-p/storefront/internal/token"
	"github.com/rayhan-p/storefront/internal/user/common/otel"
	"github.com/rayhan-p/storefront/user/pkg/request"
)

// cartMerger folds the visitor's guest cart into the user's cart at login.
type cartMerger interface {
	MergeGuestIntoUser(c context.Context, guestToken string, userID uuid.UUID) error
}

type UserService struct {
	users  repository.UserStore
	tokens *token.Manager
	merger cartMerger
}

func NewUserService(
	users repository.UserStore,
	tokens *token.Manager,
	merger cartMerger,
) *UserService {
	return &UserService{users: users, tokens: tokens, merger: merger}
}

type LoginResult struct {
	User         repository.User
	AccessToken  string
	RefreshToken string
}

func (u *UserService) Register(
	c context.Context,
	param request.Register,
) (repository.User, error) {
	c, span := otel.Tracer.Start(c, "UserService Register")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Register").
		Str(log.KeyEmail, param.Email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "hashing password").Logger()
	hashed, err := bcrypt.GenerateFromPassword([]byte(param.Password), bcrypt.DefaultCost)
	if err != nil {
		err = fmt.Errorf("failed hashing password with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.User{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "inserting user").Logger()
	user, err := u.users.InsertUser(c, repository.InsertUserParams{
		Username: param.Username,
		Email:    param.Email,
		Password: string(hashed),
	})
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.User{}, err
	}
	logger.Info().Str(log.KeyUserID, user.ID.String()).Msg("registered user")
	return user, nil
}

// Login verifies the credentials, issues an access and refresh token pair and
// merges the guest cart carried by guestToken into the user's cart. A merge
// failure is logged but never fails the login.
func (u *UserService) Login(
	c context.Context,
	param request.Login,
	guestToken string,
) (LoginResult, error) {
	c, span := otel.Tracer.Start(c, "UserService Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Login").
		Str(log.KeyEmail, param.Email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding user").Logger()
	user, err := u.users.FindUserByEmail(c, param.Email)
	if err != nil {
		if errors.Is(err, inErrors.ErrUserNotFound) {
			// same failure as a wrong password, so the response never
			// reveals whether the email is registered
			err = inErrors.ErrInvalidCredentials
		}
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return LoginResult{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "verifying password").Logger()
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(param.Password))
	if err != nil {
		err = inErrors.ErrInvalidCredentials
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return LoginResult{}, err
	}

	logger = logger.With().
		Str(log.KeyProcess, "issuing tokens").
		Str(log.KeyUserID, user.ID.String()).
		Logger()
	accessToken, err := u.tokens.AccessToken(user.ID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return LoginResult{}, err
	}
	refreshToken, err := u.tokens.RefreshToken(user.ID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return LoginResult{}, err
	}

	if u.merger != nil && guestToken != "" {
		logger = logger.With().Str(log.KeyProcess, "merging guest cart").Logger()
		c = logger.WithContext(c)
		if mergeErr := u.merger.MergeGuestIntoUser(c, guestToken, user.ID); mergeErr != nil {
			logger.Error().Err(mergeErr).Msg("failed merging guest cart into user cart")
		}
	}

	logger.Info().Msg("logged in user")
	return LoginResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh rotates the token pair; the refresh token arrives via cookie.
func (u *UserService) Refresh(c context.Context, refreshToken string) (LoginResult, error) {
	c, span := otel.Tracer.Start(c, "UserService Refresh")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Refresh").
		Logger()

	userID, err := u.tokens.ParseUserToken(refreshToken)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return LoginResult{}, err
	}

	user, err := u.users.FindUserById(c, userID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return LoginResult{}, err
	}

	accessToken, err := u.tokens.AccessToken(user.ID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return LoginResult{}, err
	}
	rotated, err := u.tokens.RefreshToken(user.ID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return LoginResult{}, err
	}
	logger.Info().Str(log.KeyUserID, user.ID.String()).Msg("refreshed tokens")
	return LoginResult{User: user, AccessToken: accessToken, RefreshToken: rotated}, nil
}

func (u *UserService) Me(c context.Context, userID uuid.UUID) (repository.User, error) {
	c, span := otel.Tracer.Start(c, "UserService Me")
	defer span.End()

	user, err := u.users.FindUserById(c, userID)
	if err != nil {
		inErrors.HandleError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return repository.User{}, err
	}
	return user, nil
}
