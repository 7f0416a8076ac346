package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
)

type postgresCartStore struct {
	pool *pgxpool.Pool
}

func NewCartStore(pool *pgxpool.Pool) CartStore {
	return &postgresCartStore{pool: pool}
}

const cartColumns = `id, user_id, guest_token, created_at`

func scanCart(row pgx.Row) (Cart, error) {
	cart := Cart{}
	err := row.Scan(&cart.ID, &cart.UserID, &cart.GuestToken, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, inErrors.ErrCartNotFound
		}
		return Cart{}, fmt.Errorf("failed scanning cart with error=%w", err)
	}
	return cart, nil
}

func (s *postgresCartStore) CreateCart(
	c context.Context,
	userID *uuid.UUID,
	guestToken *string,
) (Cart, error) {
	const query = `
INSERT INTO carts (id, user_id, guest_token)
VALUES ($1, $2, $3)
RETURNING ` + cartColumns
	return scanCart(s.pool.QueryRow(c, query, uuid.New(), userID, guestToken))
}

func (s *postgresCartStore) FindCartById(c context.Context, id uuid.UUID) (Cart, error) {
	const query = `SELECT ` + cartColumns + ` FROM carts WHERE id = $1`
	return scanCart(s.pool.QueryRow(c, query, id))
}

func (s *postgresCartStore) FindNewestCartByUser(
	c context.Context,
	userID uuid.UUID,
) (Cart, error) {
	const query = `
SELECT ` + cartColumns + `
FROM carts
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return scanCart(s.pool.QueryRow(c, query, userID))
}

func (s *postgresCartStore) FindCartByGuestToken(
	c context.Context,
	guestToken string,
) (Cart, error) {
	const query = `
SELECT ` + cartColumns + `
FROM carts
WHERE guest_token = $1
ORDER BY created_at DESC
LIMIT 1`
	return scanCart(s.pool.QueryRow(c, query, guestToken))
}

func (s *postgresCartStore) FindCartItems(
	c context.Context,
	cartID uuid.UUID,
) ([]CartItem, error) {
	const query = `
SELECT ci.id, ci.cart_id, ci.product_id, p.name, ci.quantity, p.price
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at`
	rows, err := s.pool.Query(c, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed finding cart items with error=%w", err)
	}
	defer rows.Close()

	items := []CartItem{}
	for rows.Next() {
		item := CartItem{}
		price := pgtype.Numeric{}
		err = rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductName, &item.Quantity, &price)
		if err != nil {
			return nil, fmt.Errorf("failed scanning cart item with error=%w", err)
		}
		item.Price = numericToDecimal(price)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *postgresCartStore) AdoptGuestCart(
	c context.Context,
	guestToken string,
	userID uuid.UUID,
) (Cart, error) {
	const query = `
UPDATE carts
SET user_id = $1, guest_token = NULL
WHERE guest_token = $2
RETURNING ` + cartColumns
	return scanCart(s.pool.QueryRow(c, query, userID, guestToken))
}

// AddItem increments the line in place so two concurrent adds on the same
// cart both land.
func (s *postgresCartStore) AddItem(
	c context.Context,
	cartID, productID uuid.UUID,
) (CartItem, error) {
	const query = `
INSERT INTO cart_items (id, cart_id, product_id, quantity)
VALUES ($1, $2, $3, 1)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = cart_items.quantity + 1
RETURNING id, cart_id, product_id, quantity`
	item := CartItem{}
	err := s.pool.QueryRow(c, query, uuid.New(), cartID, productID).
		Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity)
	if err != nil {
		return CartItem{}, fmt.Errorf("failed adding cart item with error=%w", err)
	}
	return item, nil
}

func (s *postgresCartStore) SetItemQuantity(
	c context.Context,
	cartID, productID uuid.UUID,
	quantity int32,
) (CartItem, error) {
	const query = `
UPDATE cart_items
SET quantity = $1
WHERE cart_id = $2 AND product_id = $3
RETURNING id, cart_id, product_id, quantity`
	item := CartItem{}
	err := s.pool.QueryRow(c, query, quantity, cartID, productID).
		Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CartItem{}, inErrors.ErrCartItemNotFound
		}
		return CartItem{}, fmt.Errorf("failed updating cart item with error=%w", err)
	}
	return item, nil
}

func (s *postgresCartStore) RemoveItem(
	c context.Context,
	cartID, productID uuid.UUID,
) error {
	const query = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`
	tag, err := s.pool.Exec(c, query, cartID, productID)
	if err != nil {
		return fmt.Errorf("failed deleting cart item with error=%w", err)
	}
	if tag.RowsAffected() == 0 {
		return inErrors.ErrCartItemNotFound
	}
	return nil
}

func (s *postgresCartStore) ClearCart(c context.Context, cartID uuid.UUID) error {
	const query = `DELETE FROM cart_items WHERE cart_id = $1`
	_, err := s.pool.Exec(c, query, cartID)
	if err != nil {
		return fmt.Errorf("failed clearing cart with error=%w", err)
	}
	return nil
}

func (s *postgresCartStore) MergeCarts(
	c context.Context,
	fromCartID, intoCartID uuid.UUID,
) error {
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed initializing transaction with error=%w", err)
	}
	defer tx.Rollback(c)

	const mergeQuery = `
INSERT INTO cart_items (id, cart_id, product_id, quantity)
SELECT gen_random_uuid(), $2, product_id, quantity
FROM cart_items
WHERE cart_id = $1
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`
	_, err = tx.Exec(c, mergeQuery, fromCartID, intoCartID)
	if err != nil {
		return fmt.Errorf("failed merging cart items with error=%w", err)
	}

	_, err = tx.Exec(c, `DELETE FROM carts WHERE id = $1`, fromCartID)
	if err != nil {
		return fmt.Errorf("failed deleting merged cart with error=%w", err)
	}

	return tx.Commit(c)
}

func (s *postgresCartStore) DeleteCart(c context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(c, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed deleting cart with error=%w", err)
	}
	return nil
}
