package rbac

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/view"
	_ "github.com/atlas-hq/atlas-admin/testing"
)

type handlerFixture struct {
	router   http.Handler
	repo     *memRepository
	store    *Store
	sessions *shared.SessionManager
	sessID   string
}

// newHandlerFixture seeds an admin user (id 7) with full role and permission
// scopes, wires the handler into a chi router, and returns a session cookie
// that survives across requests so confirmation flows can span round trips.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	templates, err := view.NewEngine()
	require.NoError(t, err)

	repo := newMemRepository()
	store := NewStore(repo, NewInflightGuard(), nil)

	ctx := context.Background()
	var permIDs []int64
	for _, name := range []string{shared.PermRolesView, shared.PermRolesEdit, shared.PermPermissionsView, shared.PermPermissionsEdit} {
		perm, err := repo.CreatePermission(ctx, name, "")
		require.NoError(t, err)
		permIDs = append(permIDs, perm.ID)
	}
	adminRole, err := repo.CreateRole(ctx, "Admin", "Full access", permIDs)
	require.NoError(t, err)
	repo.userRoles[7] = []int64{adminRole.ID}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, store, templates, csrfManager, sessionManager, Middleware{Store: store, Logger: logger})

	seedReq := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sessionManager.Load(ctx, seedReq)
	require.NoError(t, err)
	sess.SetUser("7")
	require.NoError(t, sessionManager.Commit(ctx, httptest.NewRecorder(), seedReq, sess))

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loaded, err := sessionManager.Load(r.Context(), r)
			require.NoError(t, err)
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), loaded)))
		})
	})
	router.Route("/roles", handler.MountRoutes)
	router.Route("/permissions", handler.MountPermissionRoutes)

	return &handlerFixture{router: router, repo: repo, store: store, sessions: sessionManager, sessID: sess.ID}
}

func (f *handlerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: f.sessID})
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func (f *handlerFixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: f.sessID})
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestRolesListShowsSeededRole(t *testing.T) {
	f := newHandlerFixture(t)

	res := f.get(t, "/roles")

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Admin")
}

func TestCreateRoleWithEmptyNameRendersFormErrors(t *testing.T) {
	f := newHandlerFixture(t)

	res := f.post(t, "/roles", url.Values{"name": {"   "}})

	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Role name is required.")

	roles, err := f.store.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestDeleteRoleRequiresConfirmation(t *testing.T) {
	f := newHandlerFixture(t)
	temp, err := f.repo.CreateRole(context.Background(), "Temp", "", nil)
	require.NoError(t, err)

	res := f.post(t, "/roles/"+itoa(temp.ID)+"/delete", url.Values{})

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Temp")

	_, err = f.store.GetRole(context.Background(), temp.ID)
	require.NoError(t, err, "role must survive until the action is confirmed")

	res = f.post(t, "/roles/"+itoa(temp.ID)+"/delete/confirm", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/roles", res.Header().Get("Location"))

	_, err = f.store.GetRole(context.Background(), temp.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelledDeleteKeepsRole(t *testing.T) {
	f := newHandlerFixture(t)
	temp, err := f.repo.CreateRole(context.Background(), "Temp", "", nil)
	require.NoError(t, err)

	f.post(t, "/roles/"+itoa(temp.ID)+"/delete", url.Values{})
	res := f.post(t, "/roles/"+itoa(temp.ID)+"/delete/cancel", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.Code)

	// A confirm after cancel finds no staged intent and must be a no-op.
	f.post(t, "/roles/"+itoa(temp.ID)+"/delete/confirm", url.Values{})

	_, err = f.store.GetRole(context.Background(), temp.ID)
	assert.NoError(t, err)
}

func TestConfirmPermissionDeleteWithUnassignCascades(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	perm, err := f.repo.CreatePermission(ctx, "reports.view", "")
	require.NoError(t, err)
	role, err := f.repo.CreateRole(ctx, "Reporting", "", []int64{perm.ID})
	require.NoError(t, err)

	res := f.post(t, "/permissions/"+itoa(perm.ID)+"/delete", url.Values{})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "reports.view")

	res = f.post(t, "/permissions/"+itoa(perm.ID)+"/delete/confirm", url.Values{"unassign": {"1"}})
	require.Equal(t, http.StatusSeeOther, res.Code)

	_, err = f.store.GetPermission(ctx, perm.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	kept, err := f.store.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.NotContains(t, kept.PermissionIDs, perm.ID)
}

func TestConfirmPermissionDeleteWithoutUnassignReportsConflict(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	perm, err := f.repo.CreatePermission(ctx, "reports.view", "")
	require.NoError(t, err)
	_, err = f.repo.CreateRole(ctx, "Reporting", "", []int64{perm.ID})
	require.NoError(t, err)

	f.post(t, "/permissions/"+itoa(perm.ID)+"/delete", url.Values{})
	f.post(t, "/permissions/"+itoa(perm.ID)+"/delete/confirm", url.Values{})

	// Delete fails while roles still reference the permission; the outcome
	// lands in the notification slot instead of an HTTP error.
	_, err = f.store.GetPermission(ctx, perm.ID)
	require.NoError(t, err)

	res := f.get(t, "/permissions")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "still assigned")
}

func TestMissingPermissionsYieldForbidden(t *testing.T) {
	f := newHandlerFixture(t)
	f.repo.userRoles[7] = nil

	res := f.get(t, "/roles")
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
