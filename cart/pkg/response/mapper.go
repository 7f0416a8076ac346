package response

import (
	"github.com/shopspring/decimal"

	"github.com/rayhan-p/storefront/internal/repository"
)

func MapCart(cart repository.Cart, items []repository.CartItem) Cart {
	mapped := Cart{ID: cart.ID, CartItems: []CartItem{}, Total: decimal.Zero}
	for _, item := range items {
		mapped.CartItems = append(mapped.CartItems, MapCartItem(item))
		mapped.Total = mapped.Total.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	return mapped
}

func MapCartItem(item repository.CartItem) CartItem {
	return CartItem{
		ID:          item.ID,
		ProductId:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		Price:       item.Price,
	}
}
