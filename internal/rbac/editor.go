package rbac

import (
	"context"
	"strings"
)

// RoleDraft is an unsaved, possibly invalid edit of a role. Drafts are value
// copies; mutating one never affects the committed role until Submit.
type RoleDraft struct {
	roleID   int64
	existing bool

	Name          string
	Description   string
	PermissionIDs []int64
}

// RoleID returns the id of the role the draft originated from, zero for a
// create-flow draft.
func (d RoleDraft) RoleID() int64 { return d.roleID }

// IsEdit reports whether the draft seeds an edit of an existing role. Tracked
// on the draft rather than inferred from id absence.
func (d RoleDraft) IsEdit() bool { return d.existing }

// ValidationResult carries field-level validation messages for inline
// rendering. An empty Errors map means the draft is valid.
type ValidationResult struct {
	Errors map[string]string
}

// Valid reports whether validation passed.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// RoleEditor manages a RoleDraft through validation to commit.
type RoleEditor struct {
	store *Store
}

// NewRoleEditor builds a RoleEditor backed by the given store.
func NewRoleEditor(store *Store) *RoleEditor {
	return &RoleEditor{store: store}
}

// BeginEdit starts a draft. A nil role starts an empty create-flow draft; a
// role seeds an edit flow with a value copy of its fields.
func (e *RoleEditor) BeginEdit(role *Role) RoleDraft {
	if role == nil {
		return RoleDraft{}
	}
	ids := make([]int64, len(role.PermissionIDs))
	copy(ids, role.PermissionIDs)
	return RoleDraft{
		roleID:        role.ID,
		existing:      true,
		Name:          role.Name,
		Description:   role.Description,
		PermissionIDs: ids,
	}
}

// SetName updates the draft name without validating; validation is deferred
// to Submit so typing stays responsive.
func (e *RoleEditor) SetName(d RoleDraft, name string) RoleDraft {
	d.Name = name
	return d
}

// SetDescription updates the draft description.
func (e *RoleEditor) SetDescription(d RoleDraft, description string) RoleDraft {
	d.Description = description
	return d
}

// TogglePermission adds the permission id if absent and removes it if present.
func (e *RoleEditor) TogglePermission(d RoleDraft, permissionID int64) RoleDraft {
	ids := make([]int64, 0, len(d.PermissionIDs)+1)
	removed := false
	for _, id := range d.PermissionIDs {
		if id == permissionID {
			removed = true
			continue
		}
		ids = append(ids, id)
	}
	if !removed {
		ids = append(ids, permissionID)
	}
	d.PermissionIDs = ids
	return d
}

// Validate checks the draft against the supplied set of known permission ids.
// Toggle already keeps the set duplicate-free, but Validate re-checks.
func (e *RoleEditor) Validate(d RoleDraft, knownIDs map[int64]struct{}) ValidationResult {
	result := ValidationResult{Errors: map[string]string{}}
	if strings.TrimSpace(d.Name) == "" {
		result.Errors["name"] = "Role name is required."
	}
	seen := make(map[int64]struct{}, len(d.PermissionIDs))
	for _, id := range d.PermissionIDs {
		if _, dup := seen[id]; dup {
			result.Errors["permissions"] = "Permission selection contains duplicates."
			break
		}
		seen[id] = struct{}{}
		if knownIDs != nil {
			if _, ok := knownIDs[id]; !ok {
				result.Errors["permissions"] = "Permission selection references an unknown permission."
				break
			}
		}
	}
	return result
}

// Submit validates the draft and commits it through the store. Validation
// problems come back in the ValidationResult so the caller can render them
// inline without losing draft state; err carries store failures only.
func (e *RoleEditor) Submit(ctx context.Context, d RoleDraft) (Role, ValidationResult, error) {
	known, err := e.knownPermissionIDs(ctx)
	if err != nil {
		return Role{}, ValidationResult{Errors: map[string]string{}}, err
	}
	result := e.Validate(d, known)
	if !result.Valid() {
		return Role{}, result, nil
	}

	var role Role
	if d.existing {
		name := d.Name
		description := d.Description
		ids := d.PermissionIDs
		role, err = e.store.UpdateRole(ctx, d.roleID, RolePatch{
			Name:          &name,
			Description:   &description,
			PermissionIDs: &ids,
		})
	} else {
		role, err = e.store.CreateRole(ctx, d.Name, d.Description, d.PermissionIDs)
	}
	if err != nil {
		return Role{}, result, err
	}
	return role, result, nil
}

func (e *RoleEditor) knownPermissionIDs(ctx context.Context) (map[int64]struct{}, error) {
	perms, err := e.store.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]struct{}, len(perms))
	for _, p := range perms {
		known[p.ID] = struct{}{}
	}
	return known, nil
}
