package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hq/atlas-admin/internal/shared"
)

// RepositoryPort defines persistence operations for projects.
type RepositoryPort interface {
	List(ctx context.Context) ([]Project, error)
	Get(ctx context.Context, id int64) (Project, error)
	Create(ctx context.Context, input ProjectInput) (Project, error)
	Update(ctx context.Context, id int64, input ProjectInput) (Project, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `p.id, p.name, p.description, p.customer_id, c.name, p.status, p.created_at, p.updated_at`

// List returns all projects with customer names resolved.
func (r *Repository) List(ctx context.Context) ([]Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN customers c ON c.id = p.customer_id
		ORDER BY p.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CustomerID, &p.CustomerName, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches a single project.
func (r *Repository) Get(ctx context.Context, id int64) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN customers c ON c.id = p.customer_id
		WHERE p.id = $1`, id)
	var p Project
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CustomerID, &p.CustomerName, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// Create inserts a project.
func (r *Repository) Create(ctx context.Context, input ProjectInput) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO projects (name, description, customer_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id`, input.Name, input.Description, input.CustomerID, input.Status)
	var id int64
	if err := row.Scan(&id); err != nil {
		return Project{}, mapFKError(err)
	}
	return r.Get(ctx, id)
}

// Update rewrites project fields.
func (r *Repository) Update(ctx context.Context, id int64, input ProjectInput) (Project, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects SET name = $2, description = $3, customer_id = $4, status = $5, updated_at = NOW()
		WHERE id = $1`, id, input.Name, input.Description, input.CustomerID, input.Status)
	if err != nil {
		return Project{}, mapFKError(err)
	}
	if tag.RowsAffected() == 0 {
		return Project{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// CountByStatus aggregates project counts for dashboard statistics.
func (r *Repository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM projects GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Status]int64)
	for rows.Next() {
		var status Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func mapFKError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return shared.ErrNotFound
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
