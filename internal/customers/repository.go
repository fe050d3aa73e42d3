package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hq/atlas-admin/internal/shared"
)

// RepositoryPort defines persistence operations for customers.
type RepositoryPort interface {
	List(ctx context.Context) ([]Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, input CustomerInput) (Customer, error)
	Update(ctx context.Context, id int64, input CustomerInput) (Customer, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all customers ordered by name.
func (r *Repository) List(ctx context.Context) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, phone, created_at, updated_at FROM customers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get fetches a single customer.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, email, phone, created_at, updated_at FROM customers WHERE id = $1`, id)
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// Create inserts a customer.
func (r *Repository) Create(ctx context.Context, input CustomerInput) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, name, email, phone, created_at, updated_at`,
		input.Name, input.Email, input.Phone)
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Update rewrites customer fields.
func (r *Repository) Update(ctx context.Context, id int64, input CustomerInput) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE customers SET name = $2, email = $3, phone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, email, phone, created_at, updated_at`,
		id, input.Name, input.Email, input.Phone)
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

var _ RepositoryPort = (*Repository)(nil)
