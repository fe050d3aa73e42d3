package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepository is an in-memory RepositoryPort used across the package tests.
type memRepository struct {
	nextPermID int64
	nextRoleID int64
	perms      map[int64]Permission
	permOrder  []int64
	roles      map[int64]Role
	roleOrder  []int64
	userRoles  map[int64][]int64
}

func newMemRepository() *memRepository {
	return &memRepository{
		perms:     make(map[int64]Permission),
		roles:     make(map[int64]Role),
		userRoles: make(map[int64][]int64),
	}
}

func (m *memRepository) ListPermissions(context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(m.permOrder))
	for _, id := range m.permOrder {
		out = append(out, m.perms[id])
	}
	return out, nil
}

func (m *memRepository) GetPermission(_ context.Context, id int64) (Permission, error) {
	perm, ok := m.perms[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return perm, nil
}

func (m *memRepository) FindPermissionByName(_ context.Context, folded string) (Permission, error) {
	for _, id := range m.permOrder {
		if FoldName(m.perms[id].Name) == folded {
			return m.perms[id], nil
		}
	}
	return Permission{}, ErrNotFound
}

func (m *memRepository) CreatePermission(_ context.Context, name, description string) (Permission, error) {
	m.nextPermID++
	perm := Permission{ID: m.nextPermID, Name: name, Description: description, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.perms[perm.ID] = perm
	m.permOrder = append(m.permOrder, perm.ID)
	return perm, nil
}

func (m *memRepository) UpdatePermission(_ context.Context, id int64, name, description string) (Permission, error) {
	perm, ok := m.perms[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	perm.Name = name
	perm.Description = description
	perm.UpdatedAt = time.Now()
	m.perms[id] = perm
	return perm, nil
}

func (m *memRepository) DeletePermission(_ context.Context, id int64) error {
	if _, ok := m.perms[id]; !ok {
		return ErrNotFound
	}
	delete(m.perms, id)
	for i, pid := range m.permOrder {
		if pid == id {
			m.permOrder = append(m.permOrder[:i], m.permOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memRepository) RolesReferencing(_ context.Context, permissionID int64) (int, error) {
	count := 0
	for _, role := range m.roles {
		if role.HasPermission(permissionID) {
			count++
		}
	}
	return count, nil
}

func (m *memRepository) UnassignPermission(_ context.Context, permissionID int64) error {
	for id, role := range m.roles {
		kept := role.PermissionIDs[:0]
		for _, pid := range role.PermissionIDs {
			if pid != permissionID {
				kept = append(kept, pid)
			}
		}
		role.PermissionIDs = kept
		m.roles[id] = role
	}
	return nil
}

func (m *memRepository) ListRoles(context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roleOrder))
	for _, id := range m.roleOrder {
		out = append(out, m.roles[id])
	}
	return out, nil
}

func (m *memRepository) GetRole(_ context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (m *memRepository) FindRoleByName(_ context.Context, folded string) (Role, error) {
	for _, id := range m.roleOrder {
		if FoldName(m.roles[id].Name) == folded {
			return m.roles[id], nil
		}
	}
	return Role{}, ErrNotFound
}

func (m *memRepository) CreateRole(_ context.Context, name, description string, permissionIDs []int64) (Role, error) {
	m.nextRoleID++
	role := Role{
		ID:            m.nextRoleID,
		Name:          name,
		Description:   description,
		PermissionIDs: append([]int64(nil), permissionIDs...),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.roles[role.ID] = role
	m.roleOrder = append(m.roleOrder, role.ID)
	return role, nil
}

func (m *memRepository) UpdateRole(_ context.Context, id int64, name, description string, permissionIDs []int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	role.Name = name
	role.Description = description
	role.PermissionIDs = append([]int64(nil), permissionIDs...)
	role.UpdatedAt = time.Now()
	m.roles[id] = role
	return role, nil
}

func (m *memRepository) DeleteRole(_ context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	delete(m.roles, id)
	for i, rid := range m.roleOrder {
		if rid == id {
			m.roleOrder = append(m.roleOrder[:i], m.roleOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memRepository) MissingPermissions(_ context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if _, ok := m.perms[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (m *memRepository) AssignRoleToUser(_ context.Context, userID, roleID int64) error {
	for _, rid := range m.userRoles[userID] {
		if rid == roleID {
			return nil
		}
	}
	m.userRoles[userID] = append(m.userRoles[userID], roleID)
	return nil
}

func (m *memRepository) RemoveRoleFromUser(_ context.Context, userID, roleID int64) error {
	kept := m.userRoles[userID][:0]
	for _, rid := range m.userRoles[userID] {
		if rid != roleID {
			kept = append(kept, rid)
		}
	}
	m.userRoles[userID] = kept
	return nil
}

func (m *memRepository) UserEffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, rid := range m.userRoles[userID] {
		role, ok := m.roles[rid]
		if !ok {
			continue
		}
		for _, pid := range role.PermissionIDs {
			perm, ok := m.perms[pid]
			if !ok {
				continue
			}
			if _, dup := seen[perm.Name]; dup {
				continue
			}
			seen[perm.Name] = struct{}{}
			out = append(out, perm.Name)
		}
	}
	return out, nil
}

func newTestStore(t *testing.T) (*Store, *memRepository) {
	t.Helper()
	repo := newMemRepository()
	return NewStore(repo, NewInflightGuard(), nil), repo
}

func TestCreatePermissionAppearsInListing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "reports.view", "Read access to reports")
	require.NoError(t, err)
	assert.NotZero(t, perm.ID)

	perms, err := store.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "reports.view", perms[0].Name)
}

func TestCreatePermissionRejectsEmptyName(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.CreatePermission(context.Background(), "   ", "desc")
	require.ErrorIs(t, err, ErrValidation)

	perms, err := store.ListPermissions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestCreatePermissionNameUniqueCaseInsensitive(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreatePermission(ctx, "Reports.View", "")
	require.NoError(t, err)

	_, err = store.CreatePermission(ctx, "reports.view", "")
	require.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestFoldNameAppliesFullCaseFolding(t *testing.T) {
	// Full case folding maps ß to ss, which plain lowercasing does not.
	assert.Equal(t, "strasse", FoldName("Straße"))
	assert.Equal(t, FoldName("STRASSE"), FoldName("straße"))
	assert.Equal(t, "reports.view", FoldName("  Reports.View  "))
}

func TestCreatePermissionNameUniqueUnderCaseFolding(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreatePermission(ctx, "Straße.view", "")
	require.NoError(t, err)

	// "STRASSE" and "Straße" fold to the same key.
	_, err = store.CreatePermission(ctx, "STRASSE.view", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdatePermissionPartialPatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "users.edit", "old description")
	require.NoError(t, err)

	desc := "new description"
	updated, err := store.UpdatePermission(ctx, perm.ID, PermissionPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "users.edit", updated.Name)
	assert.Equal(t, "new description", updated.Description)
}

func TestUpdatePermissionAllowsOwnName(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "users.edit", "")
	require.NoError(t, err)

	name := "Users.Edit"
	updated, err := store.UpdatePermission(ctx, perm.ID, PermissionPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Users.Edit", updated.Name)
}

func TestDeleteReferencedPermissionConflicts(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "projects.view", "")
	require.NoError(t, err)
	_, err = store.CreateRole(ctx, "Viewer", "", []int64{perm.ID})
	require.NoError(t, err)

	err = store.DeletePermission(ctx, perm.ID, false)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "still assigned to 1 role")

	// The permission survives a blocked delete.
	_, err = repo.GetPermission(ctx, perm.ID)
	require.NoError(t, err)
}

func TestDeletePermissionWithUnassignCascades(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "projects.view", "")
	require.NoError(t, err)
	role, err := store.CreateRole(ctx, "Viewer", "", []int64{perm.ID})
	require.NoError(t, err)

	require.NoError(t, store.DeletePermission(ctx, perm.ID, true))

	fresh, err := store.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.PermissionIDs)

	_, err = store.GetPermission(ctx, perm.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRolesReferencingCountsHoldingRoles(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "projects.view", "")
	require.NoError(t, err)
	_, err = store.CreateRole(ctx, "Viewer", "", []int64{perm.ID})
	require.NoError(t, err)
	_, err = store.CreateRole(ctx, "Editor", "", []int64{perm.ID})
	require.NoError(t, err)
	_, err = store.CreateRole(ctx, "Unrelated", "", nil)
	require.NoError(t, err)

	refs, err := store.RolesReferencing(ctx, perm.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refs)
}

func TestDeleteAbsentPermission(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.DeletePermission(context.Background(), 999, false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRoleRejectsUnknownPermission(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateRole(ctx, "Editor", "", []int64{42})
	require.ErrorIs(t, err, ErrIntegrity)
	assert.ErrorIs(t, err, ErrValidation)

	roles, err := store.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestCreateRoleDeduplicatesPermissionIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "tasks.view", "")
	require.NoError(t, err)

	role, err := store.CreateRole(ctx, "Member", "", []int64{perm.ID, perm.ID, perm.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{perm.ID}, role.PermissionIDs)
}

func TestCreateRoleEmptyNameLeavesStoreUntouched(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateRole(ctx, "", "", nil)
	require.ErrorIs(t, err, ErrValidation)

	roles, err := store.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestUpdateRoleNoopPatchKeepsPermissions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "tasks.edit", "")
	require.NoError(t, err)
	role, err := store.CreateRole(ctx, "Member", "does tasks", []int64{perm.ID})
	require.NoError(t, err)

	name := "Member"
	updated, err := store.UpdateRole(ctx, role.ID, RolePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, []int64{perm.ID}, updated.PermissionIDs)
	assert.Equal(t, "does tasks", updated.Description)
}

func TestUpdateRoleNameCollision(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateRole(ctx, "Admin", "", nil)
	require.NoError(t, err)
	other, err := store.CreateRole(ctx, "Support", "", nil)
	require.NoError(t, err)

	name := "admin"
	_, err = store.UpdateRole(ctx, other.ID, RolePatch{Name: &name})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeleteAbsentRole(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.DeleteRole(context.Background(), 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssignRoleAndEffectivePermissions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "reports.view", "")
	require.NoError(t, err)
	roleA, err := store.CreateRole(ctx, "Analyst", "", []int64{perm.ID})
	require.NoError(t, err)
	roleB, err := store.CreateRole(ctx, "Reviewer", "", []int64{perm.ID})
	require.NoError(t, err)

	const userID int64 = 10
	require.NoError(t, store.AssignRole(ctx, userID, roleA.ID))
	require.NoError(t, store.AssignRole(ctx, userID, roleB.ID))

	granted, err := store.EffectivePermissions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.view"}, granted)

	require.NoError(t, store.RemoveRole(ctx, userID, roleA.ID))
	granted, err = store.EffectivePermissions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.view"}, granted)
}

func TestAssignRoleUnknownRole(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.AssignRole(context.Background(), 10, 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentUpdateSameRoleRejected(t *testing.T) {
	repo := newMemRepository()
	guard := NewInflightGuard()
	store := NewStore(repo, guard, nil)
	ctx := context.Background()

	role, err := store.CreateRole(ctx, "Member", "", nil)
	require.NoError(t, err)

	release, err := guard.Begin("role", role.ID)
	require.NoError(t, err)

	name := "Renamed"
	_, err = store.UpdateRole(ctx, role.ID, RolePatch{Name: &name})
	require.ErrorIs(t, err, ErrConflict)

	release()
	_, err = store.UpdateRole(ctx, role.ID, RolePatch{Name: &name})
	require.NoError(t, err)
}
