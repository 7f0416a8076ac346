package response

import (
	"github.com/google/uuid"
)

type Checkout struct {
	OrderID     uuid.UUID `json:"order_id"`
	RedirectURL string    `json:"redirect_url"`
}
