package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rayhan-p/storefront/checkout/pkg/response"
	"github.com/rayhan-p/storefront/internal/checkout/common/otel"
	"github.com/rayhan-p/storefront/internal/checkout/gateway"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/repository"
)

// cartResolver is the slice of the cart service checkout needs: read the
// customer's current cart and empty it once payment lands.
type cartResolver interface {
	CurrentCartEntity(c context.Context, userID uuid.UUID) (repository.Cart, []repository.CartItem, error)
	ClearCartOwnedBy(c context.Context, userID uuid.UUID) error
}

type CheckoutService struct {
	orders  repository.OrderStore
	carts   cartResolver
	gateway gateway.PaymentGateway
}

func NewCheckoutService(
	orders repository.OrderStore,
	carts cartResolver,
	gw gateway.PaymentGateway,
) *CheckoutService {
	return &CheckoutService{orders: orders, carts: carts, gateway: gw}
}

// CreateOrder turns the customer's cart into a PENDING order and opens a
// payment session for it. A customer retrying checkout reuses their PENDING
// order with its lines refreshed from the cart, so the order id stays
// stable across attempts. When the payment provider rejects the session, an
// order created by this call is deleted again; a reused one is kept. The
// cart is left untouched either way.
func (svc *CheckoutService) CreateOrder(
	c context.Context,
	userID uuid.UUID,
) (response.Checkout, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService CreateOrder").
		Str(log.KeyUserID, userID.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding current cart").Logger()
	c = logger.WithContext(c)
	_, cartItems, err := svc.carts.CurrentCartEntity(c, userID)
	if err != nil {
		if errors.Is(err, inErrors.ErrCartNotFound) {
			err = inErrors.ErrEmptyCart
		}
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}
	if len(cartItems) == 0 {
		err = inErrors.ErrEmptyCart
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}

	params := make([]repository.OrderItemParams, 0, len(cartItems))
	for _, item := range cartItems {
		params = append(params, repository.OrderItemParams{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
		})
	}

	logger = logger.With().Str(log.KeyProcess, "resolving pending order").Logger()
	order, created, err := svc.resolveOrder(c, userID, params)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}
	logger = logger.With().Str(log.KeyOrderID, order.ID.String()).Logger()

	orderItems, err := svc.orders.FindOrderItems(c, order.ID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "creating checkout session").Logger()
	session, err := svc.gateway.CreateCheckoutSession(c, order, orderItems)
	if err != nil {
		if created {
			if deleteErr := svc.orders.DeleteOrder(c, order.ID); deleteErr != nil {
				logger.Error().Err(deleteErr).Msg("failed rolling back order after payment failure")
			}
		}
		err = fmt.Errorf("failed creating checkout session with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}
	logger.Info().Msg("created checkout session")

	return response.Checkout{OrderID: order.ID, RedirectURL: session.URL}, nil
}

// resolveOrder reuses the customer's newest PENDING order, refreshing its
// lines from the cart, or creates a fresh one. The bool reports whether the
// order was created by this call.
func (svc *CheckoutService) resolveOrder(
	c context.Context,
	userID uuid.UUID,
	params []repository.OrderItemParams,
) (repository.Order, bool, error) {
	pending, err := svc.orders.FindPendingOrderByCustomer(c, userID)
	if err == nil {
		order, err := svc.orders.ReplaceOrderItems(c, pending.ID, params)
		if err != nil {
			return repository.Order{}, false, fmt.Errorf(
				"failed refreshing pending order with error=%w", err)
		}
		return order, false, nil
	}
	if !errors.Is(err, inErrors.ErrOrderNotFound) {
		return repository.Order{}, false, fmt.Errorf("failed finding pending order with error=%w", err)
	}

	order, err := svc.orders.CreateOrder(c, repository.CreateOrderParams{
		CustomerID: userID,
		Items:      params,
	})
	if err != nil {
		return repository.Order{}, false, fmt.Errorf("failed creating order with error=%w", err)
	}
	return order, true, nil
}

// HandleWebhook applies a payment provider event to the order it names.
// Events for orders already in a terminal status are dropped, which makes
// redelivery safe; the customer's cart is cleared exactly once, on the
// transition into PAID.
func (svc *CheckoutService) HandleWebhook(
	c context.Context,
	payload []byte,
	signature string,
) error {
	c, span := otel.Tracer.Start(c, "CheckoutService HandleWebhook")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService HandleWebhook").
		Logger()

	result, err := svc.gateway.ParseWebhook(payload, signature)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if result == nil {
		logger.Debug().Msg("ignoring webhook event")
		return nil
	}
	logger = logger.With().
		Str(log.KeyOrderID, result.OrderID.String()).
		Str("status", string(result.Status)).
		Logger()

	order, err := svc.orders.FindOrderById(c, result.OrderID)
	if err != nil {
		err = fmt.Errorf("failed finding orderId=%s with error=%w", result.OrderID.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	if order.Status.Terminal() {
		logger.Info().
			Str("previousStatus", string(order.Status)).
			Msg("order already settled, dropping event")
		return nil
	}

	err = svc.orders.UpdateOrderStatus(c, order.ID, result.Status)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("updated order status")

	if result.Status == repository.OrderStatusPaid {
		c = logger.WithContext(c)
		if clearErr := svc.carts.ClearCartOwnedBy(c, order.CustomerID); clearErr != nil {
			// The order is already PAID; a failed clear is logged, not
			// surfaced, so the provider does not redeliver the event.
			logger.Error().Err(clearErr).Msg("failed clearing cart after payment")
		}
	}
	return nil
}
