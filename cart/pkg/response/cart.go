package response

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        uuid.UUID       `json:"id"`
	CartItems []CartItem      `json:"cart_items"`
	Total     decimal.Decimal `json:"total"`
}

type CartItem struct {
	ID          uuid.UUID       `json:"id"`
	ProductId   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int32           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}
