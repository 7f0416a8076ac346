package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	cartcontroller "github.com/rayhan-p/storefront/internal/cart/controller"
	"github.com/rayhan-p/storefront/internal/cart/owner"
	cartservice "github.com/rayhan-p/storefront/internal/cart/service"
	checkoutcontroller "github.com/rayhan-p/storefront/internal/checkout/controller"
	"github.com/rayhan-p/storefront/internal/checkout/gateway"
	checkoutservice "github.com/rayhan-p/storefront/internal/checkout/service"
	"github.com/rayhan-p/storefront/internal/config"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/infra"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/middleware"
	"github.com/rayhan-p/storefront/internal/otel"
	"github.com/rayhan-p/storefront/internal/repository"
	"github.com/rayhan-p/storefront/internal/token"
	usercontroller "github.com/rayhan-p/storefront/internal/user/controller"
	userservice "github.com/rayhan-p/storefront/internal/user/service"
)

func RunServer(c context.Context) {
	c, span := otel.Tracer.Start(c, "RunServer")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, appName).
		Str(log.KeyTag, "main RunServer").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "init config").Logger()
	logger.Info().Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, appName)
	logger.Info().Msg("initialized config")

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := otel.InitOtelSdk(c, appName, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		c = logger.WithContext(c)
		if err := otel.ShutdownOtel(c, otelShutdowns); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	c = logger.WithContext(c)
	db := infra.NewDatabaseClient(c, cfg.Database)
	defer func() {
		logger.Info().Msg("shutting down database")
		db.Close()
		logger.Info().Msg("shutdown database")
	}()
	logger.Info().Msg("initialized database")

	logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	c = logger.WithContext(c)
	cache := infra.NewCacheClient(c, cfg.Cache)
	defer func() {
		logger.Info().Msg("shutting down cache")
		if err := cache.Close(); err != nil {
			logger.Error().Err(err).Msg("failed shutting down cache")
			return
		}
		logger.Info().Msg("shutdown cache")
	}()
	logger.Info().Msg("initialized cache")

	logger = logger.With().Str(log.KeyProcess, "initializing services").Logger()
	logger.Info().Msg("initializing services")
	tokens := token.NewManager(
		cfg.Application.SecretKey,
		cfg.Token.AccessTTL(),
		cfg.Token.RefreshTTL(),
		cfg.Token.GuestTTL(),
	)
	cartStore := repository.NewCartStore(db)
	orderStore := repository.NewOrderStore(db)
	userStore := repository.NewUserStore(db)
	productStore := repository.NewProductStore(db)

	resolver := owner.NewResolver(tokens, cfg.Application.SecureCookies)
	cartSvc := cartservice.NewCartService(cartStore, productStore, tokens, cache)
	checkoutSvc := checkoutservice.NewCheckoutService(
		orderStore,
		cartSvc,
		gateway.NewStripeGateway(cfg.Payment),
	)
	userSvc := userservice.NewUserService(userStore, tokens, cartSvc)
	limiter := userservice.NewLoginRateLimiter(cache)
	logger.Info().Msg("initialized services")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(otelmux.Middleware(appName), middleware.Logging, middleware.RecoverPanic)
	cartcontroller.AttachCartController(router, cartSvc, resolver)
	checkoutcontroller.AttachCheckoutController(router, checkoutSvc, tokens)
	usercontroller.AttachUserController(
		router,
		userSvc,
		tokens,
		resolver,
		limiter,
		cfg.Application.SecureCookies,
	)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	httpServer := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	go func() {
		logger := logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("error=%w occured while server is running", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
	}()

	<-c.Done()
	logger = logger.With().Str(log.KeyProcess, "shutdown server").Logger()
	logger.Info().Msg("received interruption signal, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down server with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("shutdown server")
}
