package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rayhan-p/storefront/internal/cart/common/otel"
	"github.com/rayhan-p/storefront/internal/cart/owner"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/log"
)

// MergeGuestIntoUser folds the guest cart identified by guestToken into the
// user's cart at login. Quantities for the same product are summed and the
// guest cart disappears. A blank, invalid or cart-less token is a no-op, so
// the merge can run on every login and repeat safely.
func (svc *CartService) MergeGuestIntoUser(
	c context.Context,
	guestToken string,
	userID uuid.UUID,
) error {
	c, span := otel.Tracer.Start(c, "CartService MergeGuestIntoUser")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService MergeGuestIntoUser").
		Str(log.KeyUserID, userID.String()).
		Logger()

	if !svc.tokens.IsValidGuestToken(guestToken) {
		logger.Debug().Msg("no valid guest credential, skipping merge")
		return nil
	}

	guestCart, err := svc.carts.FindCartByGuestToken(c, guestToken)
	if err != nil {
		if errors.Is(err, inErrors.ErrCartNotFound) {
			logger.Debug().Msg("guest credential has no cart, skipping merge")
			return nil
		}
		err = fmt.Errorf("failed finding guest cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	userCart, err := svc.carts.FindNewestCartByUser(c, userID)
	if err != nil {
		if errors.Is(err, inErrors.ErrCartNotFound) {
			// The user has no cart, so the guest cart simply changes hands.
			logger = logger.With().Str(log.KeyProcess, "adopting guest cart").Logger()
			adopted, adoptErr := svc.carts.AdoptGuestCart(c, guestToken, userID)
			if adoptErr != nil {
				adoptErr = fmt.Errorf("failed adopting guest cart with error=%w", adoptErr)
				inErrors.HandleError(adoptErr, span)
				logger.Error().Err(adoptErr).Msg(adoptErr.Error())
				return adoptErr
			}
			svc.dropCachedCart(c, owner.Guest(guestToken))
			logger.Info().Str(log.KeyCartID, adopted.ID.String()).Msg("adopted guest cart")
			return nil
		}
		err = fmt.Errorf("failed finding user cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().
		Str(log.KeyProcess, "merging carts").
		Str(log.KeyCartID, userCart.ID.String()).
		Logger()
	err = svc.carts.MergeCarts(c, guestCart.ID, userCart.ID)
	if err != nil {
		err = fmt.Errorf("failed merging guest cart into user cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	svc.dropCachedCart(c, owner.Guest(guestToken))
	logger.Info().Msg("merged guest cart into user cart")
	return nil
}
