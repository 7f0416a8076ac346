package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
)

type postgresOrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) OrderStore {
	return &postgresOrderStore{pool: pool}
}

const orderColumns = `id, customer_id, status, total_price, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	order := Order{}
	total := pgtype.Numeric{}
	err := row.Scan(&order.ID, &order.CustomerID, &order.Status, &total, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, inErrors.ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("failed scanning order with error=%w", err)
	}
	order.TotalPrice = numericToDecimal(total)
	return order, nil
}

func insertOrderItems(
	c context.Context,
	tx pgx.Tx,
	orderID uuid.UUID,
	items []OrderItemParams,
) (decimal.Decimal, error) {
	const query = `
INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	total := decimal.Zero
	for _, item := range items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		_, err := tx.Exec(c, query,
			uuid.New(),
			orderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			decimalToNumeric(item.UnitPrice),
			decimalToNumeric(lineTotal),
		)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed inserting order item with error=%w", err)
		}
		total = total.Add(lineTotal)
	}
	return total, nil
}

func (s *postgresOrderStore) CreateOrder(
	c context.Context,
	param CreateOrderParams,
) (Order, error) {
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		return Order{}, fmt.Errorf("failed initializing transaction with error=%w", err)
	}
	defer tx.Rollback(c)

	orderID := uuid.New()
	_, err = tx.Exec(c,
		`INSERT INTO orders (id, customer_id, status, total_price) VALUES ($1, $2, $3, 0)`,
		orderID, param.CustomerID, OrderStatusPending,
	)
	if err != nil {
		return Order{}, fmt.Errorf("failed inserting order with error=%w", err)
	}

	total, err := insertOrderItems(c, tx, orderID, param.Items)
	if err != nil {
		return Order{}, err
	}

	order, err := scanOrder(tx.QueryRow(c,
		`UPDATE orders SET total_price = $1 WHERE id = $2 RETURNING `+orderColumns,
		decimalToNumeric(total), orderID,
	))
	if err != nil {
		return Order{}, err
	}

	return order, tx.Commit(c)
}

func (s *postgresOrderStore) ReplaceOrderItems(
	c context.Context,
	orderID uuid.UUID,
	items []OrderItemParams,
) (Order, error) {
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		return Order{}, fmt.Errorf("failed initializing transaction with error=%w", err)
	}
	defer tx.Rollback(c)

	_, err = tx.Exec(c, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("failed deleting order items with error=%w", err)
	}

	total, err := insertOrderItems(c, tx, orderID, items)
	if err != nil {
		return Order{}, err
	}

	order, err := scanOrder(tx.QueryRow(c,
		`UPDATE orders SET total_price = $1 WHERE id = $2 RETURNING `+orderColumns,
		decimalToNumeric(total), orderID,
	))
	if err != nil {
		return Order{}, err
	}

	return order, tx.Commit(c)
}

func (s *postgresOrderStore) FindPendingOrderByCustomer(
	c context.Context,
	customerID uuid.UUID,
) (Order, error) {
	const query = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_id = $1 AND status = $2
ORDER BY created_at DESC
LIMIT 1`
	return scanOrder(s.pool.QueryRow(c, query, customerID, OrderStatusPending))
}

func (s *postgresOrderStore) FindOrdersByCustomer(
	c context.Context,
	customerID uuid.UUID,
) ([]Order, error) {
	const query = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC`
	rows, err := s.pool.Query(c, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed finding orders with error=%w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		order := Order{}
		total := pgtype.Numeric{}
		err = rows.Scan(&order.ID, &order.CustomerID, &order.Status, &total, &order.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed scanning order with error=%w", err)
		}
		order.TotalPrice = numericToDecimal(total)
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *postgresOrderStore) FindOrderById(c context.Context, id uuid.UUID) (Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(s.pool.QueryRow(c, query, id))
}

func (s *postgresOrderStore) FindOrderItems(
	c context.Context,
	orderID uuid.UUID,
) ([]OrderItem, error) {
	const query = `
SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price
FROM order_items
WHERE order_id = $1
ORDER BY created_at`
	rows, err := s.pool.Query(c, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed finding order items with error=%w", err)
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		item := OrderItem{}
		unitPrice := pgtype.Numeric{}
		totalPrice := pgtype.Numeric{}
		err = rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&unitPrice,
			&totalPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed scanning order item with error=%w", err)
		}
		item.UnitPrice = numericToDecimal(unitPrice)
		item.TotalPrice = numericToDecimal(totalPrice)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *postgresOrderStore) UpdateOrderStatus(
	c context.Context,
	orderID uuid.UUID,
	status OrderStatus,
) error {
	tag, err := s.pool.Exec(c, `UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed updating order status with error=%w", err)
	}
	if tag.RowsAffected() == 0 {
		return inErrors.ErrOrderNotFound
	}
	return nil
}

func (s *postgresOrderStore) DeleteOrder(c context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(c, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed deleting order with error=%w", err)
	}
	return nil
}
