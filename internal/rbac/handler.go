package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/view"
)

// Handler composes the role editor, confirmation gate, and notification
// bridge into the role and permission management pages. It orchestrates only;
// all rules live in Store, RoleEditor, and ConfirmationGate.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	editor    *RoleEditor
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	rbac      Middleware

	mu        sync.Mutex
	flowTable map[string]*sessionFlows
}

// sessionFlows holds the per-session confirmation gate and notification slot.
type sessionFlows struct {
	gate     *ConfirmationGate
	bridge   *NotificationBridge
	lastSeen time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, store *Store, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, rbac Middleware) *Handler {
	return &Handler{
		logger:    logger,
		store:     store,
		editor:    NewRoleEditor(store),
		templates: templates,
		csrf:      csrf,
		sessions:  sessions,
		rbac:      rbac,
		flowTable: make(map[string]*sessionFlows),
	}
}

// MountRoutes registers role management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView))
		r.Get("/", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		r.Get("/new", h.showRoleForm)
		r.Post("/", h.createRole)
		r.Get("/{id}/edit", h.showEditRoleForm)
		r.Post("/{id}", h.updateRole)
		r.Post("/{id}/delete", h.requestDeleteRole)
		r.Post("/{id}/delete/confirm", h.confirmDeleteRole)
		r.Post("/{id}/delete/cancel", h.cancelDelete("/roles"))
	})
	r.Post("/notifications/dismiss", h.dismissNotification("/roles"))
}

// MountPermissionRoutes registers permission management routes.
func (h *Handler) MountPermissionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionsView))
		r.Get("/", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPermissionsEdit))
		r.Get("/new", h.showPermissionForm)
		r.Post("/", h.createPermission)
		r.Get("/{id}/edit", h.showEditPermissionForm)
		r.Post("/{id}", h.updatePermission)
		r.Post("/{id}/delete", h.requestDeletePermission)
		r.Post("/{id}/delete/confirm", h.confirmDeletePermission)
		r.Post("/{id}/delete/cancel", h.cancelDelete("/permissions"))
	})
	r.Post("/notifications/dismiss", h.dismissNotification("/permissions"))
}

type formErrors map[string]string

// --- roles ---

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		h.render(w, r, "pages/roles/list.html", map[string]any{"Errors": formErrors{"general": UserMessage(err)}}, http.StatusInternalServerError)
		return
	}
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		h.render(w, r, "pages/roles/list.html", map[string]any{"Errors": formErrors{"general": UserMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/roles/list.html", map[string]any{
		"Roles":       roles,
		"Permissions": perms,
	}, http.StatusOK)
}

func (h *Handler) showRoleForm(w http.ResponseWriter, r *http.Request) {
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		h.render(w, r, "pages/roles/form.html", map[string]any{"Errors": formErrors{"general": UserMessage(err)}}, http.StatusInternalServerError)
		return
	}
	draft := h.editor.BeginEdit(nil)
	h.render(w, r, "pages/roles/form.html", map[string]any{
		"Draft":       draft,
		"Permissions": perms,
		"Errors":      formErrors{},
	}, http.StatusOK)
}

func (h *Handler) showEditRoleForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/roles", "error", UserMessage(err))
		return
	}
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		h.render(w, r, "pages/roles/form.html", map[string]any{"Errors": formErrors{"general": UserMessage(err)}}, http.StatusInternalServerError)
		return
	}
	draft := h.editor.BeginEdit(&role)
	h.render(w, r, "pages/roles/form.html", map[string]any{
		"Draft":       draft,
		"RoleID":      role.ID,
		"Permissions": perms,
		"Errors":      formErrors{},
	}, http.StatusOK)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draftFromForm(w, r, nil)
	if !ok {
		return
	}
	h.submitDraft(w, r, draft, 0)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/roles", "error", UserMessage(err))
		return
	}
	draft, ok := h.draftFromForm(w, r, &role)
	if !ok {
		return
	}
	h.submitDraft(w, r, draft, id)
}

// draftFromForm builds a draft from posted form values. The posted permission
// set is applied through symmetric toggles so the draft never holds
// duplicates.
func (h *Handler) draftFromForm(w http.ResponseWriter, r *http.Request, role *Role) (RoleDraft, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return RoleDraft{}, false
	}
	draft := h.editor.BeginEdit(role)
	draft = h.editor.SetName(draft, r.PostFormValue("name"))
	draft = h.editor.SetDescription(draft, r.PostFormValue("description"))

	selected := make(map[int64]struct{})
	for _, raw := range r.PostForm["permission_ids"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		selected[id] = struct{}{}
	}
	for _, id := range append([]int64(nil), draft.PermissionIDs...) {
		if _, keep := selected[id]; !keep {
			draft = h.editor.TogglePermission(draft, id)
		}
		delete(selected, id)
	}
	for id := range selected {
		draft = h.editor.TogglePermission(draft, id)
	}
	return draft, true
}

func (h *Handler) submitDraft(w http.ResponseWriter, r *http.Request, draft RoleDraft, roleID int64) {
	role, result, err := h.editor.Submit(r.Context(), draft)
	if err != nil {
		h.logger.Error("submit role draft failed", slog.Any("error", err))
		h.flows(r).bridge.FromError(err)
		h.renderDraftForm(w, r, draft, roleID, formErrors{"general": UserMessage(err)})
		return
	}
	if !result.Valid() {
		h.renderDraftForm(w, r, draft, roleID, formErrors(result.Errors))
		return
	}
	label := "Role \"" + role.Name + "\" created"
	if draft.IsEdit() {
		label = "Role \"" + role.Name + "\" updated"
	}
	h.flows(r).bridge.FromSuccess(label)
	h.redirectWithFlash(w, r, "/roles", "success", label)
}

func (h *Handler) renderDraftForm(w http.ResponseWriter, r *http.Request, draft RoleDraft, roleID int64, errs formErrors) {
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		perms = nil
	}
	data := map[string]any{
		"Draft":       draft,
		"Permissions": perms,
		"Errors":      errs,
	}
	if roleID != 0 {
		data["RoleID"] = roleID
	}
	h.render(w, r, "pages/roles/form.html", data, http.StatusBadRequest)
}

func (h *Handler) requestDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/roles", "error", UserMessage(err))
		return
	}
	flows := h.flows(r)
	flows.gate.Request(Intent{
		TargetID: id,
		Action:   "role.delete",
		Label:    "Role \"" + role.Name + "\" deleted",
	}, func(ctx context.Context, targetID int64) error {
		return h.store.DeleteRole(ctx, targetID)
	})
	h.render(w, r, "pages/roles/confirm.html", map[string]any{
		"Role": role,
	}, http.StatusOK)
}

func (h *Handler) confirmDeleteRole(w http.ResponseWriter, r *http.Request) {
	h.flows(r).gate.Confirm(r.Context())
	http.Redirect(w, r, "/roles", http.StatusSeeOther)
}

// --- permissions ---

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		h.render(w, r, "pages/permissions/list.html", map[string]any{"Errors": formErrors{"general": UserMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/permissions/list.html", map[string]any{"Permissions": perms}, http.StatusOK)
}

func (h *Handler) showPermissionForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/permissions/form.html", map[string]any{"Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	description := r.PostFormValue("description")
	perm, err := h.store.CreatePermission(r.Context(), name, description)
	if err != nil {
		h.flows(r).bridge.FromError(err)
		h.render(w, r, "pages/permissions/form.html", map[string]any{
			"Name":        name,
			"Description": description,
			"Errors":      formErrors{"general": UserMessage(err)},
		}, http.StatusBadRequest)
		return
	}
	label := "Permission \"" + perm.Name + "\" created"
	h.flows(r).bridge.FromSuccess(label)
	h.redirectWithFlash(w, r, "/permissions", "success", label)
}

func (h *Handler) showEditPermissionForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	perm, err := h.store.GetPermission(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/permissions", "error", UserMessage(err))
		return
	}
	h.render(w, r, "pages/permissions/form.html", map[string]any{
		"PermissionID": perm.ID,
		"Name":         perm.Name,
		"Description":  perm.Description,
		"Errors":       formErrors{},
	}, http.StatusOK)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	description := r.PostFormValue("description")
	perm, err := h.store.UpdatePermission(r.Context(), id, PermissionPatch{Name: &name, Description: &description})
	if err != nil {
		h.flows(r).bridge.FromError(err)
		h.render(w, r, "pages/permissions/form.html", map[string]any{
			"PermissionID": id,
			"Name":         name,
			"Description":  description,
			"Errors":       formErrors{"general": UserMessage(err)},
		}, http.StatusBadRequest)
		return
	}
	label := "Permission \"" + perm.Name + "\" updated"
	h.flows(r).bridge.FromSuccess(label)
	h.redirectWithFlash(w, r, "/permissions", "success", label)
}

func (h *Handler) requestDeletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	perm, err := h.store.GetPermission(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/permissions", "error", UserMessage(err))
		return
	}
	refs, err := h.store.RolesReferencing(r.Context(), id)
	if err != nil {
		h.logger.Error("count references failed", slog.Any("error", err))
		refs = 0
	}
	h.flows(r).gate.Request(h.deletePermissionIntent(perm, false))
	h.render(w, r, "pages/permissions/confirm.html", map[string]any{
		"Permission": perm,
		"References": refs,
	}, http.StatusOK)
}

func (h *Handler) confirmDeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	flows := h.flows(r)
	// The confirm form may upgrade the staged intent to a cascading delete.
	// Re-requesting replaces the prior intent; last request wins.
	if r.PostFormValue("unassign") == "1" {
		if intent, ok := flows.gate.Pending(); ok {
			perm, err := h.store.GetPermission(r.Context(), intent.TargetID)
			if err == nil {
				flows.gate.Request(h.deletePermissionIntent(perm, true))
			}
		}
	}
	flows.gate.Confirm(r.Context())
	http.Redirect(w, r, "/permissions", http.StatusSeeOther)
}

func (h *Handler) deletePermissionIntent(perm Permission, unassign bool) (Intent, GateAction) {
	return Intent{
			TargetID: perm.ID,
			Action:   "permission.delete",
			Label:    "Permission \"" + perm.Name + "\" deleted",
		}, func(ctx context.Context, targetID int64) error {
			return h.store.DeletePermission(ctx, targetID, unassign)
		}
}

// --- shared plumbing ---

func (h *Handler) cancelDelete(location string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.flows(r).gate.Cancel()
		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}

func (h *Handler) dismissNotification(location string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.flows(r).bridge.Dismiss()
		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}

// flows returns the confirmation gate and notification bridge for the request
// session, creating them on first use.
func (h *Handler) flows(r *http.Request) *sessionFlows {
	key := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		key = sess.ID
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.flowTable[key]; ok {
		f.lastSeen = time.Now()
		return f
	}
	if len(h.flowTable) > 512 {
		h.sweepFlowsLocked()
	}
	bridge := NewNotificationBridge()
	f := &sessionFlows{gate: NewConfirmationGate(bridge), bridge: bridge, lastSeen: time.Now()}
	h.flowTable[key] = f
	return f
}

// sweepFlowsLocked drops flow state idle longer than the session lifetime.
func (h *Handler) sweepFlowsLocked() {
	ttl := 24 * time.Hour
	if h.sessions != nil {
		ttl = h.sessions.TTL()
	}
	cutoff := time.Now().Add(-ttl)
	for key, f := range h.flowTable {
		if f.lastSeen.Before(cutoff) {
			delete(h.flowTable, key)
		}
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	data["Notice"] = h.flows(r).bridge.Current()
	if strings.HasPrefix(r.URL.Path, "/permissions") {
		data["NoticeDismissPath"] = "/permissions/notifications/dismiss"
	} else {
		data["NoticeDismissPath"] = "/roles/notifications/dismiss"
	}
	viewData := view.TemplateData{Title: "Roles & Permissions", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
