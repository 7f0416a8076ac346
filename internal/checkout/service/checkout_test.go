package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayhan-p/storefront/internal/cart/owner"
	cartservice "github.com/rayhan-p/storefront/internal/cart/service"
	"github.com/rayhan-p/storefront/internal/checkout/gateway"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/repository"
	"github.com/rayhan-p/storefront/internal/token"
)

type fakeGateway struct {
	sessions    int
	failSession bool
	result      *gateway.PaymentResult
	parseErr    error
	lastItems   []repository.OrderItem
}

func (g *fakeGateway) CreateCheckoutSession(
	_ context.Context,
	order repository.Order,
	items []repository.OrderItem,
) (gateway.CheckoutSession, error) {
	g.sessions++
	g.lastItems = items
	if g.failSession {
		return gateway.CheckoutSession{}, inErrors.ErrPayment
	}
	return gateway.CheckoutSession{URL: "https://pay.example.com/" + order.ID.String()}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (*gateway.PaymentResult, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.result, nil
}

type checkoutFixture struct {
	svc      *CheckoutService
	carts    *cartservice.CartService
	orders   *repository.MemoryOrderStore
	products *repository.MemoryProductStore
	gateway  *fakeGateway
	userID   uuid.UUID
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	products := repository.NewMemoryProductStore()
	cartStore := repository.NewMemoryCartStore(products)
	orders := repository.NewMemoryOrderStore()
	tokens := token.NewManager("test-secret", time.Hour, 24*time.Hour, 30*24*time.Hour)
	carts := cartservice.NewCartService(cartStore, products, tokens, nil)
	gw := &fakeGateway{}
	return &checkoutFixture{
		svc:      NewCheckoutService(orders, carts, gw),
		carts:    carts,
		orders:   orders,
		products: products,
		gateway:  gw,
		userID:   uuid.New(),
	}
}

func (f *checkoutFixture) seedProduct(t *testing.T, name, price string) uuid.UUID {
	t.Helper()
	product := repository.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
	f.products.Put(product)
	return product.ID
}

func (f *checkoutFixture) addToCart(t *testing.T, productID uuid.UUID, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		_, err := f.carts.AddItem(context.Background(), owner.Authenticated(f.userID), productID)
		require.NoError(t, err)
	}
}

func TestCreateOrderSnapshotsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	c := context.Background()
	productID := f.seedProduct(t, "espresso beans", "12.50")
	f.addToCart(t, productID, 2)

	checkout, err := f.svc.CreateOrder(c, f.userID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, checkout.OrderID)
	assert.Contains(t, checkout.RedirectURL, checkout.OrderID.String())

	order, err := f.orders.FindOrderById(c, checkout.OrderID)
	require.NoError(t, err)
	assert.Equal(t, repository.OrderStatusPending, order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("25.00")))

	items, err := f.orders.FindOrderItems(c, checkout.OrderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "espresso beans", items[0].ProductName)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))

	// checkout leaves the cart alone until payment lands
	_, cartItems, err := f.carts.CurrentCartEntity(c, f.userID)
	require.NoError(t, err)
	assert.Len(t, cartItems, 1)
}

func TestCreateOrderReusesPendingOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	c := context.Background()
	first := f.seedProduct(t, "grinder", "120.00")
	second := f.seedProduct(t, "scale", "35.00")
	f.addToCart(t, first, 1)

	initial, err := f.svc.CreateOrder(c, f.userID)
	require.NoError(t, err)

	f.addToCart(t, second, 2)
	retry, err := f.svc.CreateOrder(c, f.userID)
	require.NoError(t, err)
	assert.Equal(t, initial.OrderID, retry.OrderID, "retrying checkout keeps the order id stable")

	items, err := f.orders.FindOrderItems(c, retry.OrderID)
	require.NoError(t, err)
	assert.Len(t, items, 2, "the reused order carries the refreshed cart lines")
	assert.Equal(t, 1, f.orders.Orders(f.userID))
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	c := context.Background()

	_, err := f.svc.CreateOrder(c, f.userID)
	assert.ErrorIs(t, err, inErrors.ErrEmptyCart, "no cart at all")

	productID := f.seedProduct(t, "mug", "9.00")
	f.addToCart(t, productID, 1)
	require.NoError(t, f.carts.RemoveItem(c, owner.Authenticated(f.userID), productID))

	_, err = f.svc.CreateOrder(c, f.userID)
	assert.ErrorIs(t, err, inErrors.ErrEmptyCart, "cart exists but is empty")
}

func TestCreateOrderRollsBackNewOrderOnPaymentFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	c := context.Background()
	productID := f.seedProduct(t, "kettle", "48.00")
	f.addToCart(t, productID, 1)
	f.gateway.failSession = true

	_, err := f.svc.CreateOrder(c, f.userID)
	assert.ErrorIs(t, err, inErrors.ErrPayment)
	assert.Equal(t, 0, f.orders.Orders(f.userID), "a freshly created order is deleted again")
}

func TestCreateOrderKeepsReusedOrderOnPaymentFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	c := context.Background()
	productID := f.seedProduct(t, "dripper", "22.00")
	f.addToCart(t, productID, 1)

	initial, err := f.svc.CreateOrder(c, f.userID)
	require.NoError(t, err)

	f.gateway.failSession = true
	_, err = f.svc.CreateOrder(c, f.userID)
	assert.ErrorIs(t, err, inErrors.ErrPayment)

	order, err := f.orders.FindOrderById(c, initial.OrderID)
	require.NoError(t, err, "an order that existed before the attempt survives it")
	assert.Equal(t, repository.OrderStatusPending, order.Status)
}

func TestHandleWebhookPaidClearsCartOnce(t *testing.T) {
	f := newCheckoutFixture(t)
	c := context.Background()
	productID := f.seedProduct(t, "aeropress", "31.00")
	f.addToCart(t, productID, 1)

	checkout, err := f.svc.CreateOrder(c, f.userID)
	require.NoError(t, err)

	f.gateway.result = &gateway.PaymentResult{
		OrderID: checkout.OrderID,
		Status:  repository.OrderStatusPaid,
	}
	require.NoError(t, f.svc.HandleWebhook(c, []byte("{}"), "sig"))

	order, err := f.orders.FindOrderById(c, checkout.OrderID)
	require.NoError(t, err)
	assert.Equal(t, repository.OrderStatusPaid, order.Status)

	_, cartItems, err := f.carts.CurrentCartEntity(c, f.userID)
	require.NoError(t, err)
	assert.Empty(t, cartItems, "payment empties the cart")

	// redelivery: the customer has shopped again in the meantime
	f.addToCart(t, productID, 1)
	require.NoError(t, f.svc.HandleWebhook(c, []byte("{}"), "sig"))

	_, cartItems, err = f.carts.CurrentCartEntity(c, f.userID)
	require.NoError(t, err)
	assert.Len(t, cartItems, 1, "a redelivered event never clears the new cart")
}

func TestHandleWebhookFailedKeepsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	c := context.Background()
	productID := f.seedProduct(t, "timer", "12.00")
	f.addToCart(t, productID, 1)

	checkout, err := f.svc.CreateOrder(c, f.userID)
	require.NoError(t, err)

	f.gateway.result = &gateway.PaymentResult{
		OrderID: checkout.OrderID,
		Status:  repository.OrderStatusFailed,
	}
	require.NoError(t, f.svc.HandleWebhook(c, []byte("{}"), "sig"))

	order, err := f.orders.FindOrderById(c, checkout.OrderID)
	require.NoError(t, err)
	assert.Equal(t, repository.OrderStatusFailed, order.Status)

	_, cartItems, err := f.carts.CurrentCartEntity(c, f.userID)
	require.NoError(t, err)
	assert.Len(t, cartItems, 1, "a failed payment keeps the cart intact")
}

func TestHandleWebhookTerminalOrderIgnoresConflictingEvent(t *testing.T) {
	f := newCheckoutFixture(t)
	c := context.Background()
	productID := f.seedProduct(t, "carafe", "28.00")
	f.addToCart(t, productID, 1)

	checkout, err := f.svc.CreateOrder(c, f.userID)
	require.NoError(t, err)

	f.gateway.result = &gateway.PaymentResult{
		OrderID: checkout.OrderID,
		Status:  repository.OrderStatusPaid,
	}
	require.NoError(t, f.svc.HandleWebhook(c, []byte("{}"), "sig"))

	f.gateway.result.Status = repository.OrderStatusFailed
	require.NoError(t, f.svc.HandleWebhook(c, []byte("{}"), "sig"))

	order, err := f.orders.FindOrderById(c, checkout.OrderID)
	require.NoError(t, err)
	assert.Equal(t, repository.OrderStatusPaid, order.Status, "settled orders never change status")
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.parseErr = inErrors.ErrInvalidSignature

	err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
	assert.ErrorIs(t, err, inErrors.ErrInvalidSignature)
}

func TestHandleWebhookUnknownEventIsNoop(t *testing.T) {
	f := newCheckoutFixture(t)
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.result = &gateway.PaymentResult{
		OrderID: uuid.New(),
		Status:  repository.OrderStatusPaid,
	}

	err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.True(t, errors.Is(err, inErrors.ErrOrderNotFound))
}
