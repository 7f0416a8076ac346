package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rayhan-p/storefront/internal/checkout/common/otel"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/repository"
)

// OrderDetail pairs an order with its frozen snapshot lines.
type OrderDetail struct {
	Order repository.Order
	Items []repository.OrderItem
}

// ListOrders returns the customer's orders, newest first, each with its
// snapshot lines.
func (svc *CheckoutService) ListOrders(
	c context.Context,
	userID uuid.UUID,
) ([]OrderDetail, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService ListOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService ListOrders").
		Str(log.KeyUserID, userID.String()).
		Logger()

	c = logger.WithContext(c)
	orders, err := svc.orders.FindOrdersByCustomer(c, userID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	details := make([]OrderDetail, 0, len(orders))
	for _, order := range orders {
		items, err := svc.orders.FindOrderItems(c, order.ID)
		if err != nil {
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		details = append(details, OrderDetail{Order: order, Items: items})
	}
	return details, nil
}

// GetOrder fetches one of the customer's orders with its lines. An order
// placed by someone else is ErrIncorrectOwner.
func (svc *CheckoutService) GetOrder(
	c context.Context,
	userID uuid.UUID,
	orderID uuid.UUID,
) (OrderDetail, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService GetOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService GetOrder").
		Str(log.KeyUserID, userID.String()).
		Str(log.KeyOrderID, orderID.String()).
		Logger()

	c = logger.WithContext(c)
	order, err := svc.orders.FindOrderById(c, orderID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return OrderDetail{}, err
	}
	if order.CustomerID != userID {
		err = inErrors.ErrIncorrectOwner
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return OrderDetail{}, err
	}

	items, err := svc.orders.FindOrderItems(c, order.ID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return OrderDetail{}, err
	}
	return OrderDetail{Order: order, Items: items}, nil
}

// CancelPendingOrder deletes the customer's order while it is still PENDING.
// A missing order and an order already past PENDING are both no-ops, so a
// double cancel or a cancel racing the webhook settles quietly.
func (svc *CheckoutService) CancelPendingOrder(
	c context.Context,
	userID uuid.UUID,
	orderID uuid.UUID,
) error {
	c, span := otel.Tracer.Start(c, "CheckoutService CancelPendingOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService CancelPendingOrder").
		Str(log.KeyUserID, userID.String()).
		Str(log.KeyOrderID, orderID.String()).
		Logger()

	c = logger.WithContext(c)
	order, err := svc.orders.FindOrderById(c, orderID)
	if err != nil {
		if errors.Is(err, inErrors.ErrOrderNotFound) {
			return nil
		}
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if order.CustomerID != userID {
		err = inErrors.ErrIncorrectOwner
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if order.Status != repository.OrderStatusPending {
		logger.Info().
			Str("status", string(order.Status)).
			Msg("order already settled, leaving it alone")
		return nil
	}

	if err := svc.orders.DeleteOrder(c, order.ID); err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("cancelled pending order")
	return nil
}
