package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStore holds carts and their lines. Implementations keep every item
// mutation atomic so concurrent increments on the same cart never lose an
// update.
type CartStore interface {
	CreateCart(c context.Context, userID *uuid.UUID, guestToken *string) (Cart, error)
	FindCartById(c context.Context, id uuid.UUID) (Cart, error)
	// FindNewestCartByUser resolves the user's current cart: the most
	// recently created one when duplicates exist.
	FindNewestCartByUser(c context.Context, userID uuid.UUID) (Cart, error)
	FindCartByGuestToken(c context.Context, guestToken string) (Cart, error)
	FindCartItems(c context.Context, cartID uuid.UUID) ([]CartItem, error)
	// AdoptGuestCart reassigns the guest cart to the user, clearing the
	// guest token so the cart never carries both owner kinds.
	AdoptGuestCart(c context.Context, guestToken string, userID uuid.UUID) (Cart, error)
	AddItem(c context.Context, cartID, productID uuid.UUID) (CartItem, error)
	SetItemQuantity(c context.Context, cartID, productID uuid.UUID, quantity int32) (CartItem, error)
	RemoveItem(c context.Context, cartID, productID uuid.UUID) error
	ClearCart(c context.Context, cartID uuid.UUID) error
	// MergeCarts folds every line of the from-cart into the into-cart,
	// summing quantities per product, then deletes the from-cart.
	MergeCarts(c context.Context, fromCartID, intoCartID uuid.UUID) error
	DeleteCart(c context.Context, id uuid.UUID) error
}

type OrderItemParams struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
}

type CreateOrderParams struct {
	CustomerID uuid.UUID
	Items      []OrderItemParams
}

type OrderStore interface {
	CreateOrder(c context.Context, param CreateOrderParams) (Order, error)
	// ReplaceOrderItems swaps the order's snapshot for a fresh one and
	// recomputes the total. Used when a PENDING order is reused.
	ReplaceOrderItems(c context.Context, orderID uuid.UUID, items []OrderItemParams) (Order, error)
	FindPendingOrderByCustomer(c context.Context, customerID uuid.UUID) (Order, error)
	// FindOrdersByCustomer lists the customer's orders, newest first.
	FindOrdersByCustomer(c context.Context, customerID uuid.UUID) ([]Order, error)
	FindOrderById(c context.Context, id uuid.UUID) (Order, error)
	FindOrderItems(c context.Context, orderID uuid.UUID) ([]OrderItem, error)
	UpdateOrderStatus(c context.Context, orderID uuid.UUID, status OrderStatus) error
	DeleteOrder(c context.Context, id uuid.UUID) error
}

type InsertUserParams struct {
	Username string
	Email    string
	Password string
}

type UserStore interface {
	InsertUser(c context.Context, param InsertUserParams) (User, error)
	FindUserByEmail(c context.Context, email string) (User, error)
	FindUserById(c context.Context, id uuid.UUID) (User, error)
}

type ProductStore interface {
	FindProductById(c context.Context, id uuid.UUID) (Product, error)
}
