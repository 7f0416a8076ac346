package controller

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/rayhan-p/storefront/internal/checkout/common/otel"
	"github.com/rayhan-p/storefront/internal/checkout/service"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	inHttp "github.com/rayhan-p/storefront/internal/http"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/middleware"
	"github.com/rayhan-p/storefront/internal/token"
)

// webhook payloads are small; anything larger is not a provider event
const maxWebhookBody = 1 << 20

type CheckoutController struct {
	service *service.CheckoutService
}

func AttachCheckoutController(
	router *mux.Router,
	svc *service.CheckoutService,
	tokens *token.Manager,
) {
	controller := CheckoutController{service: svc}

	sub := router.PathPrefix("/checkout").Subrouter()
	sub.Handle("", middleware.Auth(tokens)(http.HandlerFunc(controller.CreateOrder))).
		Methods(http.MethodPost)
	sub.HandleFunc("/webhook", controller.HandleWebhook).Methods(http.MethodPost)

	orders := router.PathPrefix("/orders").Subrouter()
	orders.Use(middleware.Auth(tokens))
	orders.HandleFunc("", controller.FindOrders).Methods(http.MethodGet)
	orders.HandleFunc("/{orderId}", controller.FindOrder).Methods(http.MethodGet)
	orders.HandleFunc("/{orderId}", controller.CancelOrder).Methods(http.MethodDelete)
}

func (t CheckoutController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController CreateOrder").
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
	logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "creating order").Logger()
	c = logger.WithContext(c)
	checkout, err := t.service.CreateOrder(c, userId)
	if err != nil {
		err = fmt.Errorf("failed creating order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": inErrors.StatusCode(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Str(log.KeyOrderID, checkout.OrderID.String()).Msg("created order")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "successfully created order",
		"data": map[string]interface{}{
			"checkout": checkout,
		},
	})
}

func (t CheckoutController) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController HandleWebhook")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController HandleWebhook").
		Logger()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		err = fmt.Errorf("failed reading webhook payload with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	logger = logger.With().Str(log.KeyProcess, "handling webhook").Logger()
	c = logger.WithContext(c)
	err = t.service.HandleWebhook(c, payload, r.Header.Get(inHttp.KeyHeaderPaymentSignature))
	if err != nil {
		err = fmt.Errorf("failed handling webhook with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": inErrors.StatusCode(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("handled webhook")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully handled webhook",
	})
}
