package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hq/atlas-admin/internal/rbac"
	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/view"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, sessions: sessions, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Post("/{id}/roles", h.assignRole)
		r.Post("/{id}/roles/{roleID}/remove", h.removeRole)
	})
}

const usersPerPage = 20

type formErrors map[string]string

func pageSlice(list []User, p shared.Pagination) []User {
	start := (p.Page - 1) * p.PerPage
	if start >= len(list) {
		return nil
	}
	end := start + p.PerPage
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, "pages/users/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	roles, err := h.service.Roles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		h.render(w, r, "pages/users/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pager := shared.NewPagination(page, usersPerPage, len(list))
	h.render(w, r, "pages/users/list.html", map[string]any{"Users": pageSlice(list, pager), "Roles": roles, "Pager": pager}, http.StatusOK)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	roleID, err := strconv.ParseInt(r.PostFormValue("role_id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, "/users", "error", "Select a role to assign.")
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, roleID); err != nil {
		h.logger.Error("assign role failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/users", "error", rbac.UserMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", "Role assigned")
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathInt(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := h.pathInt(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.RemoveRole(r.Context(), userID, roleID); err != nil {
		h.logger.Error("remove role failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/users", "error", rbac.UserMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", "Role removed")
}

func (h *Handler) pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
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
	viewData := view.TemplateData{Title: "Users", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
