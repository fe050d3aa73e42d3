package users

import (
	"time"

	"github.com/atlas-hq/atlas-admin/internal/rbac"
)

// User represents a user account for management.
type User struct {
	ID        int64
	Email     string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time

	Roles []rbac.Role
}
