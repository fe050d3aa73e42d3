package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginEditCopiesRole(t *testing.T) {
	editor := NewRoleEditor(nil)
	role := Role{ID: 5, Name: "Support", Description: "Handles tickets", PermissionIDs: []int64{1, 2}}

	draft := editor.BeginEdit(&role)
	draft = editor.SetName(draft, "Renamed")
	draft = editor.TogglePermission(draft, 1)

	assert.Equal(t, "Support", role.Name)
	assert.Equal(t, []int64{1, 2}, role.PermissionIDs)
	assert.Equal(t, "Renamed", draft.Name)
	assert.Equal(t, []int64{2}, draft.PermissionIDs)
	assert.True(t, draft.IsEdit())
	assert.Equal(t, int64(5), draft.RoleID())
}

func TestBeginEditNilStartsCreateDraft(t *testing.T) {
	editor := NewRoleEditor(nil)

	draft := editor.BeginEdit(nil)
	assert.False(t, draft.IsEdit())
	assert.Empty(t, draft.Name)
	assert.Empty(t, draft.PermissionIDs)
}

func TestTogglePermissionSymmetric(t *testing.T) {
	editor := NewRoleEditor(nil)

	draft := editor.BeginEdit(nil)
	draft = editor.TogglePermission(draft, 7)
	assert.Equal(t, []int64{7}, draft.PermissionIDs)

	draft = editor.TogglePermission(draft, 7)
	assert.Empty(t, draft.PermissionIDs)
}

func TestValidateEmptyName(t *testing.T) {
	editor := NewRoleEditor(nil)

	draft := editor.BeginEdit(nil)
	draft = editor.SetName(draft, "   ")

	result := editor.Validate(draft, nil)
	assert.False(t, result.Valid())
	assert.Contains(t, result.Errors, "name")
}

func TestValidateUnknownPermission(t *testing.T) {
	editor := NewRoleEditor(nil)

	draft := editor.BeginEdit(nil)
	draft = editor.SetName(draft, "Editor")
	draft = editor.TogglePermission(draft, 99)

	result := editor.Validate(draft, map[int64]struct{}{1: {}})
	assert.False(t, result.Valid())
	assert.Contains(t, result.Errors, "permissions")
}

func TestSubmitCreatesRole(t *testing.T) {
	store, _ := newTestStore(t)
	editor := NewRoleEditor(store)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "tasks.view", "")
	require.NoError(t, err)

	draft := editor.BeginEdit(nil)
	draft = editor.SetName(draft, "Member")
	draft = editor.SetDescription(draft, "Baseline access")
	draft = editor.TogglePermission(draft, perm.ID)

	role, result, err := editor.Submit(ctx, draft)
	require.NoError(t, err)
	require.True(t, result.Valid())
	assert.NotZero(t, role.ID)
	assert.Equal(t, []int64{perm.ID}, role.PermissionIDs)
}

func TestSubmitUpdatesExistingRole(t *testing.T) {
	store, _ := newTestStore(t)
	editor := NewRoleEditor(store)
	ctx := context.Background()

	permA, err := store.CreatePermission(ctx, "tasks.view", "")
	require.NoError(t, err)
	permB, err := store.CreatePermission(ctx, "tasks.edit", "")
	require.NoError(t, err)
	role, err := store.CreateRole(ctx, "Member", "", []int64{permA.ID})
	require.NoError(t, err)

	draft := editor.BeginEdit(&role)
	draft = editor.TogglePermission(draft, permA.ID)
	draft = editor.TogglePermission(draft, permB.ID)

	updated, result, err := editor.Submit(ctx, draft)
	require.NoError(t, err)
	require.True(t, result.Valid())
	assert.Equal(t, role.ID, updated.ID)
	assert.Equal(t, []int64{permB.ID}, updated.PermissionIDs)

	roles, err := store.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
}

func TestSubmitInvalidDraftDoesNotTouchStore(t *testing.T) {
	store, _ := newTestStore(t)
	editor := NewRoleEditor(store)
	ctx := context.Background()

	draft := editor.BeginEdit(nil)
	draft = editor.TogglePermission(draft, 42)

	_, result, err := editor.Submit(ctx, draft)
	require.NoError(t, err)
	assert.False(t, result.Valid())
	assert.Contains(t, result.Errors, "name")
	assert.Contains(t, result.Errors, "permissions")

	roles, err := store.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestSubmitPropagatesStoreConflict(t *testing.T) {
	store, _ := newTestStore(t)
	editor := NewRoleEditor(store)
	ctx := context.Background()

	_, err := store.CreateRole(ctx, "Admin", "", nil)
	require.NoError(t, err)

	draft := editor.BeginEdit(nil)
	draft = editor.SetName(draft, "admin")

	_, result, err := editor.Submit(ctx, draft)
	require.ErrorIs(t, err, ErrValidation)
	assert.True(t, result.Valid())
}
