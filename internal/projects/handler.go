package projects

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hq/atlas-admin/internal/customers"
	"github.com/atlas-hq/atlas-admin/internal/rbac"
	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/view"
)

// Handler manages project endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	customers *customers.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, customerSvc *customers.Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, customers: customerSvc, templates: templates, csrf: csrf, sessions: sessions, rbac: rbac}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProjectsView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProjectsEdit))
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
		h.logger.Error("list projects failed", slog.Any("error", err))
		h.render(w, r, "pages/projects/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/projects/list.html", map[string]any{"Projects": list}, http.StatusOK)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, 0, ProjectInput{Status: StatusPlanned}, formErrors{}, http.StatusOK)
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/projects", "error", shared.UserSafeMessage(err))
		return
	}
	input := ProjectInput{Name: p.Name, Description: p.Description, CustomerID: p.CustomerID, Status: p.Status}
	h.renderForm(w, r, p.ID, input, formErrors{}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.inputFromForm(w, r)
	if !ok {
		return
	}
	p, errs, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create project failed", slog.Any("error", err))
		errs = formErrors{"general": shared.UserSafeMessage(err)}
	}
	if len(errs) > 0 {
		h.renderForm(w, r, 0, input, errs, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/projects", "success", "Project \""+p.Name+"\" created")
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
	p, errs, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update project failed", slog.Any("error", err))
		errs = formErrors{"general": shared.UserSafeMessage(err)}
	}
	if len(errs) > 0 {
		h.renderForm(w, r, id, input, errs, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/projects", "success", "Project \""+p.Name+"\" updated")
}

func (h *Handler) inputFromForm(w http.ResponseWriter, r *http.Request) (ProjectInput, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return ProjectInput{}, false
	}
	customerID, _ := strconv.ParseInt(r.PostFormValue("customer_id"), 10, 64)
	return ProjectInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		CustomerID:  customerID,
		Status:      Status(r.PostFormValue("status")),
	}, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, projectID int64, input ProjectInput, errs formErrors, status int) {
	customerList, err := h.customers.List(r.Context())
	if err != nil {
		h.logger.Error("list customers failed", slog.Any("error", err))
	}
	data := map[string]any{
		"Name":        input.Name,
		"Description": input.Description,
		"CustomerID":  input.CustomerID,
		"Status":      input.Status,
		"Statuses":    Statuses(),
		"Customers":   customerList,
		"Errors":      errs,
	}
	if projectID != 0 {
		data["ProjectID"] = projectID
	}
	h.render(w, r, "pages/projects/form.html", data, status)
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
	viewData := view.TemplateData{Title: "Projects", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
