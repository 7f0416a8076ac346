package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
)

type postgresUserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) UserStore {
	return &postgresUserStore{pool: pool}
}

const userColumns = `id, username, email, password, created_at`

func scanUser(row pgx.Row) (User, error) {
	user := User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, inErrors.ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed scanning user with error=%w", err)
	}
	return user, nil
}

func (s *postgresUserStore) InsertUser(c context.Context, param InsertUserParams) (User, error) {
	const query = `
INSERT INTO users (id, username, email, password)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns
	user, err := scanUser(s.pool.QueryRow(c, query, uuid.New(), param.Username, param.Email, param.Password))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, inErrors.ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

func (s *postgresUserStore) FindUserByEmail(c context.Context, email string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.pool.QueryRow(c, query, email))
}

func (s *postgresUserStore) FindUserById(c context.Context, id uuid.UUID) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.pool.QueryRow(c, query, id))
}
