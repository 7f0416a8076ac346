package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/rayhan-p/storefront/internal/cart/owner"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	inHttp "github.com/rayhan-p/storefront/internal/http"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/middleware"
	"github.com/rayhan-p/storefront/internal/token"
	"github.com/rayhan-p/storefront/internal/user/common/otel"
	"github.com/rayhan-p/storefront/internal/user/service"
	"github.com/rayhan-p/storefront/user/pkg/request"
	"github.com/rayhan-p/storefront/user/pkg/response"
)

const refreshCookieName = "refreshToken"

type UserController struct {
	service       *service.UserService
	tokens        *token.Manager
	resolver      *owner.Resolver
	secureCookies bool
}

func AttachUserController(
	router *mux.Router,
	svc *service.UserService,
	tokens *token.Manager,
	resolver *owner.Resolver,
	limiter middleware.RateLimiter,
	secureCookies bool,
) {
	controller := UserController{
		service:       svc,
		tokens:        tokens,
		resolver:      resolver,
		secureCookies: secureCookies,
	}

	sub := router.PathPrefix("/auth").Subrouter()
	sub.HandleFunc("/register", controller.Register).Methods(http.MethodPost)
	sub.Handle(
		"/login",
		middleware.LoginRateLimit(limiter)(http.HandlerFunc(controller.Login)),
	).Methods(http.MethodPost)
	sub.HandleFunc("/refresh", controller.Refresh).Methods(http.MethodPost)
	sub.Handle("/me", middleware.Auth(tokens)(http.HandlerFunc(controller.Me))).
		Methods(http.MethodGet)
}

func mapUser(user service.LoginResult) response.Login {
	return response.Login{
		AccessToken: user.AccessToken,
		User: response.User{
			ID:       user.User.ID,
			Username: user.User.Username,
			Email:    user.User.Email,
		},
	}
}

func (t UserController) Register(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Register")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController Register").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding requestbody").Logger()
	reqBody := request.Register{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	logger = logger.With().Str(log.KeyProcess, "validating requestbody").Logger()
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	logger = logger.With().Str(log.KeyProcess, "registering user").Logger()
	c = logger.WithContext(c)
	user, err := t.service.Register(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed registering user with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": inErrors.StatusCode(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Str(log.KeyUserID, user.ID.String()).Msg("registered user")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "successfully registered user",
		"data": map[string]interface{}{
			"user": response.User{ID: user.ID, Username: user.Username, Email: user.Email},
		},
	})
}

func (t UserController) Login(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController Login").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding requestbody").Logger()
	reqBody := request.Login{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	logger = logger.With().Str(log.KeyProcess, "validating requestbody").Logger()
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	logger = logger.With().Str(log.KeyProcess, "logging in").Logger()
	c = logger.WithContext(c)
	guestToken := owner.GuestTokenFromRequest(r)
	result, err := t.service.Login(c, reqBody, guestToken)
	if err != nil {
		err = fmt.Errorf("failed logging in with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": inErrors.StatusCode(err),
			"message":    err.Error(),
		})
		return
	}

	t.setRefreshCookie(w, result.RefreshToken)
	if guestToken != "" {
		// the guest cart was merged (or the credential was useless); the
		// browser no longer needs the cookie
		t.resolver.ClearGuestCookie(w)
	}
	logger.Info().Str(log.KeyUserID, result.User.ID.String()).Msg("logged in")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully logged in",
		"data": map[string]interface{}{
			"login": mapUser(result),
		},
	})
}

func (t UserController) Refresh(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Refresh")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController Refresh").
		Logger()

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		err = inErrors.ErrEmptyAuth
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusUnauthorized,
			"message":    err.Error(),
		})
		return
	}

	logger = logger.With().Str(log.KeyProcess, "refreshing tokens").Logger()
	c = logger.WithContext(c)
	result, err := t.service.Refresh(c, cookie.Value)
	if err != nil {
		err = fmt.Errorf("failed refreshing tokens with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": inErrors.StatusCode(err),
			"message":    err.Error(),
		})
		return
	}

	t.setRefreshCookie(w, result.RefreshToken)
	logger.Info().Msg("refreshed tokens")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully refreshed tokens",
		"data": map[string]interface{}{
			"login": mapUser(result),
		},
	})
}

func (t UserController) Me(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Me")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController Me").
		Logger()

	userId, ok := middleware.UserIDFromContext(c)
	if !ok {
		err := inErrors.ErrEmptyAuth
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusUnauthorized,
			"message":    err.Error(),
		})
		return
	}

	c = logger.WithContext(c)
	user, err := t.service.Me(c, userId)
	if err != nil {
		err = fmt.Errorf("failed finding user with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": inErrors.StatusCode(err),
			"message":    err.Error(),
		})
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found user",
		"data": map[string]interface{}{
			"user": response.User{ID: user.ID, Username: user.Username, Email: user.Email},
		},
	})
}

func (t UserController) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/auth",
		MaxAge:   int(t.tokens.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   t.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
