package rbac

import "time"

// Permission represents an atomic grantable capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Role is a named, reusable bundle of permissions.
type Role struct {
	ID            int64
	Name          string
	Description   string
	PermissionIDs []int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPermission reports whether the role references the given permission id.
func (r Role) HasPermission(id int64) bool {
	for _, pid := range r.PermissionIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// UserRole links an application user to a role.
type UserRole struct {
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
}

// PermissionPatch describes a partial permission update. Nil fields are left
// unchanged.
type PermissionPatch struct {
	Name        *string
	Description *string
}

// RolePatch describes a partial role update. Nil fields are left unchanged.
type RolePatch struct {
	Name          *string
	Description   *string
	PermissionIDs *[]int64
}
