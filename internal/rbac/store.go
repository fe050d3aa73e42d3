package rbac

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/atlas-hq/atlas-admin/internal/shared"
)

// RepositoryPort defines data access methods for permissions and roles.
// Implementations must apply each mutation atomically.
type RepositoryPort interface {
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	FindPermissionByName(ctx context.Context, folded string) (Permission, error)
	CreatePermission(ctx context.Context, name, description string) (Permission, error)
	UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error)
	DeletePermission(ctx context.Context, id int64) error
	RolesReferencing(ctx context.Context, permissionID int64) (int, error)
	UnassignPermission(ctx context.Context, permissionID int64) error

	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	FindRoleByName(ctx context.Context, folded string) (Role, error)
	CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, permissionIDs []int64) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	MissingPermissions(ctx context.Context, ids []int64) ([]int64, error)

	AssignRoleToUser(ctx context.Context, userID, roleID int64) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error
	UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

var nameFolder = cases.Fold()

// FoldName normalizes a name for case-insensitive comparison.
func FoldName(name string) string {
	return nameFolder.String(strings.TrimSpace(name))
}

// Store is the authoritative owner of permissions and roles. All mutations
// validate first; either the full change applies and a fresh snapshot is
// returned, or the store is left untouched and an error from the taxonomy in
// errors.go is returned.
type Store struct {
	repo    RepositoryPort
	guard   *InflightGuard
	audit   *shared.AuditLogger
	actorID int64
}

// NewStore builds a Store instance.
func NewStore(repo RepositoryPort, guard *InflightGuard, audit *shared.AuditLogger) *Store {
	if guard == nil {
		guard = NewInflightGuard()
	}
	return &Store{repo: repo, guard: guard, audit: audit}
}

// WithActor returns a shallow copy of the store attributing mutations to the
// given user id in the audit trail.
func (s *Store) WithActor(userID int64) *Store {
	clone := *s
	clone.actorID = userID
	return &clone
}

// ListPermissions returns a snapshot of all permissions in insertion order.
func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// GetPermission fetches a permission by id.
func (s *Store) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return s.repo.GetPermission(ctx, id)
}

// CreatePermission validates and inserts a new permission.
func (s *Store) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, validationf("permission name is required")
	}
	if _, err := s.repo.FindPermissionByName(ctx, FoldName(name)); err == nil {
		return Permission{}, validationf("permission name %q is already taken", name)
	}
	perm, err := s.repo.CreatePermission(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Permission{}, err
	}
	s.record(ctx, "permission.create", "permission", perm.ID, map[string]any{"name": perm.Name})
	return perm, nil
}

// UpdatePermission applies a partial update to an existing permission.
func (s *Store) UpdatePermission(ctx context.Context, id int64, patch PermissionPatch) (Permission, error) {
	release, err := s.guard.Begin("permission", id)
	if err != nil {
		return Permission{}, err
	}
	defer release()

	current, err := s.repo.GetPermission(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	name := current.Name
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
	}
	description := current.Description
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}
	if name == "" {
		return Permission{}, validationf("permission name is required")
	}
	if other, err := s.repo.FindPermissionByName(ctx, FoldName(name)); err == nil && other.ID != id {
		return Permission{}, validationf("permission name %q is already taken", name)
	}
	perm, err := s.repo.UpdatePermission(ctx, id, name, description)
	if err != nil {
		return Permission{}, err
	}
	s.record(ctx, "permission.update", "permission", perm.ID, map[string]any{"name": perm.Name})
	return perm, nil
}

// DeletePermission removes a permission. When the permission is still
// referenced by a role the delete fails with ErrConflict unless unassign is
// set, in which case the references are removed first.
func (s *Store) DeletePermission(ctx context.Context, id int64, unassign bool) error {
	release, err := s.guard.Begin("permission", id)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.repo.GetPermission(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.RolesReferencing(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		if !unassign {
			return validationConflict(refs)
		}
		if err := s.repo.UnassignPermission(ctx, id); err != nil {
			return err
		}
	}
	if err := s.repo.DeletePermission(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "permission.delete", "permission", id, nil)
	return nil
}

// RolesReferencing counts roles still holding the permission.
func (s *Store) RolesReferencing(ctx context.Context, permissionID int64) (int, error) {
	return s.repo.RolesReferencing(ctx, permissionID)
}

// ListRoles returns a snapshot of all roles in insertion order.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by id.
func (s *Store) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole validates and inserts a new role with its permission set.
func (s *Store) CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if err := s.validateRoleName(ctx, name, 0); err != nil {
		return Role{}, err
	}
	ids, err := s.validatePermissionSet(ctx, permissionIDs)
	if err != nil {
		return Role{}, err
	}
	role, err := s.repo.CreateRole(ctx, name, strings.TrimSpace(description), ids)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, "role.create", "role", role.ID, map[string]any{"name": role.Name, "permissions": len(role.PermissionIDs)})
	return role, nil
}

// UpdateRole applies a partial update to an existing role. A no-op patch
// leaves the permission set untouched.
func (s *Store) UpdateRole(ctx context.Context, id int64, patch RolePatch) (Role, error) {
	release, err := s.guard.Begin("role", id)
	if err != nil {
		return Role{}, err
	}
	defer release()

	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	name := current.Name
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
	}
	description := current.Description
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}
	permissionIDs := current.PermissionIDs
	if patch.PermissionIDs != nil {
		permissionIDs = *patch.PermissionIDs
	}
	if err := s.validateRoleName(ctx, name, id); err != nil {
		return Role{}, err
	}
	ids, err := s.validatePermissionSet(ctx, permissionIDs)
	if err != nil {
		return Role{}, err
	}
	role, err := s.repo.UpdateRole(ctx, id, name, description, ids)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, "role.update", "role", role.ID, map[string]any{"name": role.Name, "permissions": len(role.PermissionIDs)})
	return role, nil
}

// DeleteRole removes a role unconditionally. Role deletion never cascades to
// permissions.
func (s *Store) DeleteRole(ctx context.Context, id int64) error {
	release, err := s.guard.Begin("role", id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "role.delete", "role", id, nil)
	return nil
}

// AssignRole grants a role to a user.
func (s *Store) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.AssignRoleToUser(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, "role.assign", "role", roleID, map[string]any{"user_id": userID})
	return nil
}

// RemoveRole revokes a role from a user.
func (s *Store) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.RemoveRoleFromUser(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, "role.remove", "role", roleID, map[string]any{"user_id": userID})
	return nil
}

// EffectivePermissions returns deduplicated permission names granted to a user
// through role membership.
func (s *Store) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserEffectivePermissions(ctx, userID)
}

func (s *Store) validateRoleName(ctx context.Context, name string, selfID int64) error {
	if name == "" {
		return validationf("role name is required")
	}
	if other, err := s.repo.FindRoleByName(ctx, FoldName(name)); err == nil && other.ID != selfID {
		return validationf("role name %q is already taken", name)
	}
	return nil
}

// validatePermissionSet deduplicates the ids and verifies every one resolves
// to an existing permission.
func (s *Store) validatePermissionSet(ctx context.Context, ids []int64) ([]int64, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return unique, nil
	}
	missing, err := s.repo.MissingPermissions(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, ErrIntegrity
	}
	return unique, nil
}

func (s *Store) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  s.actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
