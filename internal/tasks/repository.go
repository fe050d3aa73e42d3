package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hq/atlas-admin/internal/shared"
)

// RepositoryPort defines persistence operations for tasks.
type RepositoryPort interface {
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	Create(ctx context.Context, input TaskInput) (Task, error)
	Update(ctx context.Context, id int64, input TaskInput) (Task, error)
	CountOpen(ctx context.Context) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `t.id, t.title, t.project_id, p.name,
	COALESCE(t.assignee_id, 0), COALESCE(e.name, ''), t.status,
	COALESCE(t.due_at, '0001-01-01'::timestamptz), t.created_at, t.updated_at`

// List returns all tasks with project and assignee names resolved.
func (r *Repository) List(ctx context.Context) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		LEFT JOIN employees e ON e.id = t.assignee_id
		ORDER BY t.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var task Task
		if err := rows.Scan(&task.ID, &task.Title, &task.ProjectID, &task.ProjectName, &task.AssigneeID, &task.AssigneeName, &task.Status, &task.DueAt, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// Get fetches a single task.
func (r *Repository) Get(ctx context.Context, id int64) (Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		LEFT JOIN employees e ON e.id = t.assignee_id
		WHERE t.id = $1`, id)
	var task Task
	if err := row.Scan(&task.ID, &task.Title, &task.ProjectID, &task.ProjectName, &task.AssigneeID, &task.AssigneeName, &task.Status, &task.DueAt, &task.CreatedAt, &task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, shared.ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

// Create inserts a task.
func (r *Repository) Create(ctx context.Context, input TaskInput) (Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, project_id, assignee_id, status, due_at, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, 0), $4, $5, NOW(), NOW())
		RETURNING id`,
		input.Title, input.ProjectID, input.AssigneeID, input.Status, nullableTime(input.DueAt))
	var id int64
	if err := row.Scan(&id); err != nil {
		return Task{}, mapFKError(err)
	}
	return r.Get(ctx, id)
}

// Update rewrites task fields.
func (r *Repository) Update(ctx context.Context, id int64, input TaskInput) (Task, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET title = $2, project_id = $3, assignee_id = NULLIF($4, 0), status = $5, due_at = $6, updated_at = NOW()
		WHERE id = $1`,
		id, input.Title, input.ProjectID, input.AssigneeID, input.Status, nullableTime(input.DueAt))
	if err != nil {
		return Task{}, mapFKError(err)
	}
	if tag.RowsAffected() == 0 {
		return Task{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// CountOpen counts tasks not yet done, for dashboard statistics.
func (r *Repository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE status <> 'done'`).Scan(&count)
	return count, err
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func mapFKError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return shared.ErrNotFound
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
