package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayhan-p/storefront/internal/cart/owner"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/repository"
	"github.com/rayhan-p/storefront/internal/token"
)

func newTestCartService(t *testing.T) (*CartService, *repository.MemoryCartStore, *repository.MemoryProductStore, *token.Manager) {
	t.Helper()
	products := repository.NewMemoryProductStore()
	carts := repository.NewMemoryCartStore(products)
	tokens := token.NewManager("test-secret", time.Hour, 24*time.Hour, 30*24*time.Hour)
	return NewCartService(carts, products, tokens, nil), carts, products, tokens
}

func seedProduct(products *repository.MemoryProductStore, name string, price string) uuid.UUID {
	product := repository.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
	products.Put(product)
	return product.ID
}

func itemQuantities(t *testing.T, items []repository.CartItem) map[uuid.UUID]int32 {
	t.Helper()
	quantities := map[uuid.UUID]int32{}
	for _, item := range items {
		quantities[item.ProductID] = item.Quantity
	}
	return quantities
}

func TestCurrentCartLazyCreate(t *testing.T) {
	svc, _, _, _ := newTestCartService(t)
	c := context.Background()
	ow := owner.Authenticated(uuid.New())

	cart, items, err := svc.CurrentCart(c, ow)
	require.NoError(t, err)
	assert.Empty(t, items)

	again, _, err := svc.CurrentCart(c, ow)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID, "repeated calls resolve the same cart")
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	svc, _, products, _ := newTestCartService(t)
	c := context.Background()
	ow := owner.Guest("guest-token")
	productID := seedProduct(products, "espresso beans", "12.50")

	for i := 0; i < 3; i++ {
		_, err := svc.AddItem(c, ow, productID)
		require.NoError(t, err)
	}

	_, items, err := svc.CurrentCart(c, ow)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(3), items[0].Quantity)
	assert.Equal(t, "espresso beans", items[0].ProductName)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, _, _, _ := newTestCartService(t)
	c := context.Background()

	_, err := svc.AddItem(c, owner.Guest("guest-token"), uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrProductNotFound)
}

func TestSetQuantityOverwrites(t *testing.T) {
	svc, _, products, _ := newTestCartService(t)
	c := context.Background()
	ow := owner.Authenticated(uuid.New())
	productID := seedProduct(products, "pour over kettle", "48.00")

	_, err := svc.AddItem(c, ow, productID)
	require.NoError(t, err)

	item, err := svc.SetQuantity(c, ow, productID, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(7), item.Quantity)
}

func TestSetQuantityMissingLine(t *testing.T) {
	svc, _, products, _ := newTestCartService(t)
	c := context.Background()
	ow := owner.Authenticated(uuid.New())
	productID := seedProduct(products, "filter papers", "4.25")

	_, _, err := svc.CurrentCart(c, ow)
	require.NoError(t, err)

	_, err = svc.SetQuantity(c, ow, productID, 2)
	assert.ErrorIs(t, err, inErrors.ErrCartItemNotFound)
}

func TestRemoveItemDeletesWholeLine(t *testing.T) {
	svc, _, products, _ := newTestCartService(t)
	c := context.Background()
	ow := owner.Guest("guest-token")
	productID := seedProduct(products, "mug", "9.00")

	_, err := svc.AddItem(c, ow, productID)
	require.NoError(t, err)
	_, err = svc.AddItem(c, ow, productID)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(c, ow, productID))

	_, items, err := svc.CurrentCart(c, ow)
	require.NoError(t, err)
	assert.Empty(t, items, "removing deletes the line, not a single unit")

	err = svc.RemoveItem(c, ow, productID)
	assert.ErrorIs(t, err, inErrors.ErrCartItemNotFound)
}

func TestNetItemCountMatchesAddsAndRemoves(t *testing.T) {
	svc, _, products, _ := newTestCartService(t)
	c := context.Background()
	ow := owner.Authenticated(uuid.New())

	first := seedProduct(products, "grinder", "120.00")
	second := seedProduct(products, "scale", "35.00")

	for i := 0; i < 4; i++ {
		_, err := svc.AddItem(c, ow, first)
		require.NoError(t, err)
	}
	_, err := svc.AddItem(c, ow, second)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveItem(c, ow, second))

	_, items, err := svc.CurrentCart(c, ow)
	require.NoError(t, err)
	quantities := itemQuantities(t, items)
	assert.Equal(t, map[uuid.UUID]int32{first: 4}, quantities)
}

func TestClearCartIsIdempotent(t *testing.T) {
	svc, _, products, _ := newTestCartService(t)
	c := context.Background()
	ow := owner.Guest("guest-token")
	productID := seedProduct(products, "v60 dripper", "22.00")

	_, err := svc.AddItem(c, ow, productID)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(c, ow))
	require.NoError(t, svc.ClearCart(c, ow))

	_, items, err := svc.CurrentCart(c, ow)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClearCartWithoutCartIsNoop(t *testing.T) {
	svc, _, _, _ := newTestCartService(t)
	assert.NoError(t, svc.ClearCart(context.Background(), owner.Guest("never-seen")))
}

func TestOwnersNeverShareCarts(t *testing.T) {
	svc, _, products, _ := newTestCartService(t)
	c := context.Background()
	userOwner := owner.Authenticated(uuid.New())
	guestOwner := owner.Guest("guest-token")
	productID := seedProduct(products, "cold brew bottle", "18.00")

	_, err := svc.AddItem(c, userOwner, productID)
	require.NoError(t, err)

	_, items, err := svc.CurrentCart(c, guestOwner)
	require.NoError(t, err)
	assert.Empty(t, items, "a guest never sees a user's cart")

	otherUser := owner.Authenticated(uuid.New())
	_, items, err = svc.CurrentCart(c, otherUser)
	require.NoError(t, err)
	assert.Empty(t, items, "users never see each other's carts")
}

func TestCurrentCartEntityDoesNotCreate(t *testing.T) {
	svc, _, _, _ := newTestCartService(t)
	_, _, err := svc.CurrentCartEntity(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestClearCartOwnedBy(t *testing.T) {
	svc, _, products, _ := newTestCartService(t)
	c := context.Background()
	userID := uuid.New()
	ow := owner.Authenticated(userID)
	productID := seedProduct(products, "aeropress", "31.00")

	_, err := svc.AddItem(c, ow, productID)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCartOwnedBy(c, userID))
	_, items, err := svc.CurrentCart(c, ow)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, svc.ClearCartOwnedBy(c, uuid.New()), "unknown users clear nothing")
}
