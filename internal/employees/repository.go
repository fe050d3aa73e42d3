package employees

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hq/atlas-admin/internal/shared"
)

// RepositoryPort defines persistence operations for employees.
type RepositoryPort interface {
	List(ctx context.Context) ([]Employee, error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, input EmployeeInput) (Employee, error)
	Update(ctx context.Context, id int64, input EmployeeInput) (Employee, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all employees ordered by name.
func (r *Repository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, position, hired_at, created_at, updated_at FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Position, &e.HiredAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get fetches a single employee.
func (r *Repository) Get(ctx context.Context, id int64) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, email, position, hired_at, created_at, updated_at FROM employees WHERE id = $1`, id)
	var e Employee
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Position, &e.HiredAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, shared.ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

// Create inserts an employee.
func (r *Repository) Create(ctx context.Context, input EmployeeInput) (Employee, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO employees (name, email, position, hired_at, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW(), NOW())
		RETURNING id, name, email, position, hired_at, created_at, updated_at`,
		input.Name, input.Email, input.Position)
	var e Employee
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Position, &e.HiredAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Employee{}, err
	}
	return e, nil
}

// Update rewrites employee fields.
func (r *Repository) Update(ctx context.Context, id int64, input EmployeeInput) (Employee, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE employees SET name = $2, email = $3, position = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, email, position, hired_at, created_at, updated_at`,
		id, input.Name, input.Email, input.Position)
	var e Employee
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Position, &e.HiredAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, shared.ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

var _ RepositoryPort = (*Repository)(nil)
