package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rayhan-p/storefront/internal/cart/common/otel"
	"github.com/rayhan-p/storefront/internal/cart/owner"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/repository"
	"github.com/rayhan-p/storefront/internal/token"
)

const cartIDCacheTTL = 30 * time.Minute

type CartService struct {
	carts    repository.CartStore
	products repository.ProductStore
	tokens   *token.Manager
	cache    *redis.Client
}

func NewCartService(
	carts repository.CartStore,
	products repository.ProductStore,
	tokens *token.Manager,
	cache *redis.Client,
) *CartService {
	return &CartService{carts: carts, products: products, tokens: tokens, cache: cache}
}

// CurrentCart resolves the owner's cart, creating an empty one when none
// exists yet. Repeated calls hand back the same cart.
func (svc *CartService) CurrentCart(
	c context.Context,
	ow owner.CartOwner,
) (repository.Cart, []repository.CartItem, error) {
	c, span := otel.Tracer.Start(c, "CartService CurrentCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService CurrentCart").
		Logger()

	c = logger.WithContext(c)
	cart, err := svc.findOrCreateCart(c, ow)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Cart{}, nil, err
	}

	items, err := svc.carts.FindCartItems(c, cart.ID)
	if err != nil {
		err = fmt.Errorf("failed finding cart items with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Cart{}, nil, err
	}
	return cart, items, nil
}

// AddItem puts one unit of the product into the owner's cart, incrementing
// the existing line when the product is already there.
func (svc *CartService) AddItem(
	c context.Context,
	ow owner.CartOwner,
	productID uuid.UUID,
) (repository.CartItem, error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddItem").
		Str(log.KeyProductID, productID.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	if _, err := svc.products.FindProductById(c, productID); err != nil {
		err = fmt.Errorf("failed finding productId=%s with error=%w", productID.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "resolving cart").Logger()
	c = logger.WithContext(c)
	cart, err := svc.findOrCreateCart(c, ow)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}

	logger = logger.With().
		Str(log.KeyProcess, "adding cart item").
		Str(log.KeyCartID, cart.ID.String()).
		Logger()
	item, err := svc.carts.AddItem(c, cart.ID, productID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}
	logger.Info().Int32(log.KeyQuantity, item.Quantity).Msg("added cart item")
	return item, nil
}

// SetQuantity overwrites the line's quantity. The line must already exist.
func (svc *CartService) SetQuantity(
	c context.Context,
	ow owner.CartOwner,
	productID uuid.UUID,
	quantity int32,
) (repository.CartItem, error) {
	c, span := otel.Tracer.Start(c, "CartService SetQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService SetQuantity").
		Str(log.KeyProductID, productID.String()).
		Int32(log.KeyQuantity, quantity).
		Logger()

	c = logger.WithContext(c)
	cart, err := svc.requireOwnedCart(c, ow)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}

	item, err := svc.carts.SetItemQuantity(c, cart.ID, productID, quantity)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}
	return item, nil
}

// RemoveItem deletes the whole line regardless of its quantity.
func (svc *CartService) RemoveItem(
	c context.Context,
	ow owner.CartOwner,
	productID uuid.UUID,
) error {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveItem").
		Str(log.KeyProductID, productID.String()).
		Logger()

	c = logger.WithContext(c)
	cart, err := svc.requireOwnedCart(c, ow)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	err = svc.carts.RemoveItem(c, cart.ID, productID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}

// ClearCart empties the owner's cart. Clearing an absent cart is a no-op.
func (svc *CartService) ClearCart(c context.Context, ow owner.CartOwner) error {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService ClearCart").
		Logger()

	c = logger.WithContext(c)
	cart, err := svc.findCart(c, ow)
	if err != nil {
		if errors.Is(err, inErrors.ErrCartNotFound) {
			return nil
		}
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	err = svc.carts.ClearCart(c, cart.ID)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Str(log.KeyCartID, cart.ID.String()).Msg("cleared cart")
	return nil
}

// CurrentCartEntity is the checkout-facing lookup: the user's newest cart
// and its items, without lazily creating one.
func (svc *CartService) CurrentCartEntity(
	c context.Context,
	userID uuid.UUID,
) (repository.Cart, []repository.CartItem, error) {
	cart, err := svc.carts.FindNewestCartByUser(c, userID)
	if err != nil {
		return repository.Cart{}, nil, err
	}
	items, err := svc.carts.FindCartItems(c, cart.ID)
	if err != nil {
		return repository.Cart{}, nil, fmt.Errorf("failed finding cart items with error=%w", err)
	}
	return cart, items, nil
}

// ClearCartOwnedBy empties the user's newest cart; absent carts are a no-op.
// Checkout reconciliation calls this after a payment succeeds.
func (svc *CartService) ClearCartOwnedBy(c context.Context, userID uuid.UUID) error {
	cart, err := svc.carts.FindNewestCartByUser(c, userID)
	if err != nil {
		if errors.Is(err, inErrors.ErrCartNotFound) {
			return nil
		}
		return err
	}
	return svc.carts.ClearCart(c, cart.ID)
}

// requireOwnedCart resolves the owner's cart without creating one and
// re-checks the ownership columns on the row that came back. A cart that
// belongs to anyone else surfaces as ErrIncorrectOwner, never as the other
// owner's data.
func (svc *CartService) requireOwnedCart(
	c context.Context,
	ow owner.CartOwner,
) (repository.Cart, error) {
	cart, err := svc.findCart(c, ow)
	if err != nil {
		return repository.Cart{}, err
	}
	if ow.IsUser() {
		if cart.UserID == nil || *cart.UserID != ow.UserID() {
			return repository.Cart{}, inErrors.ErrIncorrectOwner
		}
		return cart, nil
	}
	if cart.GuestToken == nil || *cart.GuestToken != ow.GuestToken() {
		return repository.Cart{}, inErrors.ErrIncorrectOwner
	}
	return cart, nil
}

func (svc *CartService) findCart(
	c context.Context,
	ow owner.CartOwner,
) (repository.Cart, error) {
	if cart, ok := svc.cachedCart(c, ow); ok {
		return cart, nil
	}
	var cart repository.Cart
	var err error
	if ow.IsUser() {
		cart, err = svc.carts.FindNewestCartByUser(c, ow.UserID())
	} else {
		cart, err = svc.carts.FindCartByGuestToken(c, ow.GuestToken())
	}
	if err != nil {
		return repository.Cart{}, err
	}
	svc.storeCachedCart(c, ow, cart.ID)
	return cart, nil
}

func (svc *CartService) findOrCreateCart(
	c context.Context,
	ow owner.CartOwner,
) (repository.Cart, error) {
	cart, err := svc.findCart(c, ow)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, inErrors.ErrCartNotFound) {
		return repository.Cart{}, err
	}

	logger := zerolog.Ctx(c)
	if ow.IsUser() {
		userID := ow.UserID()
		cart, err = svc.carts.CreateCart(c, &userID, nil)
	} else {
		guestToken := ow.GuestToken()
		cart, err = svc.carts.CreateCart(c, nil, &guestToken)
	}
	if err != nil {
		return repository.Cart{}, err
	}
	logger.Info().Str(log.KeyCartID, cart.ID.String()).Msg("created cart")
	svc.storeCachedCart(c, ow, cart.ID)
	return cart, nil
}

// The cache only remembers owner -> cart id; the row itself is always
// re-read so ownership checks run against the database copy. Cache errors
// degrade to a plain lookup.
func (svc *CartService) cachedCart(c context.Context, ow owner.CartOwner) (repository.Cart, bool) {
	if svc.cache == nil {
		return repository.Cart{}, false
	}
	key := cartCacheKey(ow)
	cached, err := svc.cache.Get(c, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zerolog.Ctx(c).Warn().Err(err).Str(log.KeyCacheKey, key).Msg("cart cache lookup failed")
		}
		return repository.Cart{}, false
	}
	cartID, err := uuid.Parse(cached)
	if err != nil {
		return repository.Cart{}, false
	}
	cart, err := svc.carts.FindCartById(c, cartID)
	if err != nil {
		svc.dropCachedCart(c, ow)
		return repository.Cart{}, false
	}
	if !cartBelongsTo(cart, ow) {
		svc.dropCachedCart(c, ow)
		return repository.Cart{}, false
	}
	return cart, true
}

func (svc *CartService) storeCachedCart(c context.Context, ow owner.CartOwner, cartID uuid.UUID) {
	if svc.cache == nil {
		return
	}
	key := cartCacheKey(ow)
	err := svc.cache.Set(c, key, cartID.String(), cartIDCacheTTL).Err()
	if err != nil {
		zerolog.Ctx(c).Warn().Err(err).Str(log.KeyCacheKey, key).Msg("cart cache store failed")
	}
}

func (svc *CartService) dropCachedCart(c context.Context, ow owner.CartOwner) {
	if svc.cache == nil {
		return
	}
	key := cartCacheKey(ow)
	err := svc.cache.Del(c, key).Err()
	if err != nil {
		zerolog.Ctx(c).Warn().Err(err).Str(log.KeyCacheKey, key).Msg("cart cache delete failed")
	}
}

func cartCacheKey(ow owner.CartOwner) string {
	if ow.IsUser() {
		return "carts:owner:user:" + ow.UserID().String()
	}
	return "carts:owner:guest:" + ow.GuestToken()
}

func cartBelongsTo(cart repository.Cart, ow owner.CartOwner) bool {
	if ow.IsUser() {
		return cart.UserID != nil && *cart.UserID == ow.UserID()
	}
	return cart.GuestToken != nil && *cart.GuestToken == ow.GuestToken()
}
