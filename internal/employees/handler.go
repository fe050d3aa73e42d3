package employees

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hq/atlas-admin/internal/rbac"
	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/view"
)

// Handler manages employee endpoints.
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

// MountRoutes registers employee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermEmployeesView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermEmployeesEdit))
		r.Get("/new", h.showForm)
		r.Post("/", h.create)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
	})
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list employees failed", slog.Any("error", err))
		h.render(w, r, "pages/employees/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/employees/list.html", map[string]any{"Employees": list}, http.StatusOK)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/employees/form.html", map[string]any{"Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/employees", "error", shared.UserSafeMessage(err))
		return
	}
	h.render(w, r, "pages/employees/form.html", map[string]any{
		"EmployeeID": e.ID,
		"Name":       e.Name,
		"Email":      e.Email,
		"Position":   e.Position,
		"Errors":     formErrors{},
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.inputFromForm(w, r)
	if !ok {
		return
	}
	e, errs, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create employee failed", slog.Any("error", err))
		errs = formErrors{"general": shared.UserSafeMessage(err)}
	}
	if len(errs) > 0 {
		h.render(w, r, "pages/employees/form.html", map[string]any{
			"Name": input.Name, "Email": input.Email, "Position": input.Position, "Errors": errs,
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/employees", "success", "Employee \""+e.Name+"\" created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	input, ok := h.inputFromForm(w, r)
	if !ok {
		return
	}
	e, errs, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update employee failed", slog.Any("error", err))
		errs = formErrors{"general": shared.UserSafeMessage(err)}
	}
	if len(errs) > 0 {
		h.render(w, r, "pages/employees/form.html", map[string]any{
			"EmployeeID": id, "Name": input.Name, "Email": input.Email, "Position": input.Position, "Errors": errs,
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/employees", "success", "Employee \""+e.Name+"\" updated")
}

func (h *Handler) inputFromForm(w http.ResponseWriter, r *http.Request) (EmployeeInput, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return EmployeeInput{}, false
	}
	return EmployeeInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Position: r.PostFormValue("position"),
	}, true
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
	viewData := view.TemplateData{Title: "Employees", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
