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

type postgresProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) ProductStore {
	return &postgresProductStore{pool: pool}
}

func (s *postgresProductStore) FindProductById(
	c context.Context,
	id uuid.UUID,
) (Product, error) {
	const query = `SELECT id, name, price, quantity, created_at FROM products WHERE id = $1`
	product := Product{}
	price := pgtype.Numeric{}
	err := s.pool.QueryRow(c, query, id).
		Scan(&product.ID, &product.Name, &price, &product.Quantity, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, inErrors.ErrProductNotFound
		}
		return Product{}, fmt.Errorf("failed finding product with error=%w", err)
	}
	product.Price = numericToDecimal(price)
	return product, nil
}
