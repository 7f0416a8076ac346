package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rayhan-p/storefront/internal/repository"
)

type Order struct {
	ID         uuid.UUID       `json:"id"`
	Status     string          `json:"status"`
	Items      []OrderItem     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	ProductId   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

func MapOrder(order repository.Order, items []repository.OrderItem) Order {
	mapped := Order{
		ID:         order.ID,
		Status:     string(order.Status),
		Items:      []OrderItem{},
		TotalPrice: order.TotalPrice,
		CreatedAt:  order.CreatedAt,
	}
	for _, item := range items {
		mapped.Items = append(mapped.Items, MapOrderItem(item))
	}
	return mapped
}

func MapOrderItem(item repository.OrderItem) OrderItem {
	return OrderItem{
		ID:          item.ID,
		ProductId:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TotalPrice:  item.TotalPrice,
	}
}
