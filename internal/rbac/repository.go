package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hq/atlas-admin/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for permissions and roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPermissions returns all permissions ordered by id.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM permissions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GetPermission fetches a permission by id.
func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("%w: permission %d", ErrNotFound, id)
		}
		return Permission{}, err
	}
	return p, nil
}

// FindPermissionByName looks up a permission by case-folded name.
func (r *Repository) FindPermissionByName(ctx context.Context, folded string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM permissions WHERE name_folded = $1`, folded).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("%w: permission %q", ErrNotFound, folded)
		}
		return Permission{}, err
	}
	return p, nil
}

// CreatePermission inserts a new permission.
func (r *Repository) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, name_folded, description, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING id, name, description, created_at, updated_at`, name, FoldName(name), description).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Permission{}, mapPgError(err)
	}
	return p, nil
}

// UpdatePermission rewrites name and description for an existing permission.
func (r *Repository) UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx,
		`UPDATE permissions SET name = $2, name_folded = $3, description = $4, updated_at = NOW() WHERE id = $1
		 RETURNING id, name, description, created_at, updated_at`, id, name, FoldName(name), description).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("%w: permission %d", ErrNotFound, id)
		}
		return Permission{}, mapPgError(err)
	}
	return p, nil
}

// DeletePermission removes a permission row.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: permission %d", ErrNotFound, id)
	}
	return nil
}

// RolesReferencing counts roles still holding the permission.
func (r *Repository) RolesReferencing(ctx context.Context, permissionID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1`, permissionID).Scan(&count)
	return count, err
}

// UnassignPermission removes the permission from every role that holds it.
func (r *Repository) UnassignPermission(ctx context.Context, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, permissionID)
	return err
}

// ListRoles returns all roles with their permission sets, ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	byID := make(map[int64]int)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		byID[role.ID] = len(roles)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	linkRows, err := r.pool.Query(ctx, `SELECT role_id, permission_id FROM role_permissions ORDER BY role_id, permission_id`)
	if err != nil {
		return nil, err
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var roleID, permID int64
		if err := linkRows.Scan(&roleID, &permID); err != nil {
			return nil, err
		}
		if idx, ok := byID[roleID]; ok {
			roles[idx].PermissionIDs = append(roles[idx].PermissionIDs, permID)
		}
	}
	return roles, linkRows.Err()
}

// GetRole fetches a role with its permission set.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("%w: role %d", ErrNotFound, id)
		}
		return Role{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT permission_id FROM role_permissions WHERE role_id = $1 ORDER BY permission_id`, id)
	if err != nil {
		return Role{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var permID int64
		if err := rows.Scan(&permID); err != nil {
			return Role{}, err
		}
		role.PermissionIDs = append(role.PermissionIDs, permID)
	}
	return role, rows.Err()
}

// FindRoleByName looks up a role by case-folded name.
func (r *Repository) FindRoleByName(ctx context.Context, folded string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE name_folded = $1`, folded).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("%w: role %q", ErrNotFound, folded)
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a role together with its permission links in one
// transaction.
func (r *Repository) CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO roles (name, name_folded, description, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW())
			 RETURNING id, name, description, created_at, updated_at`, name, FoldName(name), description).
			Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return mapPgError(err)
		}
		return attachPermissions(ctx, tx, role.ID, permissionIDs)
	})
	if err != nil {
		return Role{}, err
	}
	role.PermissionIDs = permissionIDs
	return role, nil
}

// UpdateRole rewrites a role and replaces its permission links in one
// transaction.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string, permissionIDs []int64) (Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE roles SET name = $2, name_folded = $3, description = $4, updated_at = NOW() WHERE id = $1
			 RETURNING id, name, description, created_at, updated_at`, id, name, FoldName(name), description).
			Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: role %d", ErrNotFound, id)
			}
			return mapPgError(err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		return attachPermissions(ctx, tx, id, permissionIDs)
	})
	if err != nil {
		return Role{}, err
	}
	role.PermissionIDs = permissionIDs
	return role, nil
}

// DeleteRole removes a role; links and user assignments cascade in the schema.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role %d", ErrNotFound, id)
	}
	return nil
}

// MissingPermissions returns the subset of ids with no matching permission row.
func (r *Repository) MissingPermissions(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM permissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// AssignRoleToUser grants a role, ignoring duplicate grants.
func (r *Repository) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id, created_at) VALUES ($1, $2, NOW()) ON CONFLICT DO NOTHING`,
		userID, roleID)
	return mapPgError(err)
}

// RemoveRoleFromUser revokes a role grant.
func (r *Repository) RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// UserEffectivePermissions returns deduplicated permission names granted to a
// user through role membership.
func (r *Repository) UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT p.name
		 FROM user_roles ur
		 JOIN role_permissions rp ON rp.role_id = ur.role_id
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE ur.user_id = $1
		 ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func attachPermissions(ctx context.Context, tx pgx.Tx, roleID int64, permissionIDs []int64) error {
	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES ($1, $2, NOW())`,
			roleID, permID); err != nil {
			return mapPgError(err)
		}
	}
	return nil
}

// mapPgError folds SQLSTATE codes into the error taxonomy so callers never
// branch on driver errors.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return validationf("name is already taken")
		case "23503":
			return ErrIntegrity
		}
	}
	return err
}
