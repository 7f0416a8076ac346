package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/rayhan-p/storefront/internal/repository"
)

type CheckoutSession struct {
	URL string
}

// PaymentResult is what a webhook event boils down to: which order it is
// about and the status the order should move to.
type PaymentResult struct {
	OrderID uuid.UUID
	Status  repository.OrderStatus
}

// PaymentGateway talks to the payment provider. ParseWebhook returns
// (nil, nil) for events the store does not act on, so callers can skip them
// without treating it as a failure.
type PaymentGateway interface {
	CreateCheckoutSession(
		c context.Context,
		order repository.Order,
		items []repository.OrderItem,
	) (CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*PaymentResult, error)
}
