package errors

import (
	"errors"
	"net/http"
)

// StatusCode maps a domain error to the HTTP status written at the boundary.
// Unknown errors become 500 so that gateway internals never leak to callers.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrCartNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrCartItemNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrIncorrectOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, ErrPayment):
		return http.StatusBadGateway
	case errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrEmptyAuth),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
