package tasks

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hq/atlas-admin/internal/employees"
	"github.com/atlas-hq/atlas-admin/internal/projects"
	"github.com/atlas-hq/atlas-admin/internal/rbac"
	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/view"
)

// Handler manages task endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	projects  *projects.Service
	employees *employees.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, projectSvc *projects.Service, employeeSvc *employees.Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, projects: projectSvc, employees: employeeSvc, templates: templates, csrf: csrf, sessions: sessions, rbac: rbac}
}

// MountRoutes registers task routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTasksView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTasksEdit))
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
		h.logger.Error("list tasks failed", slog.Any("error", err))
		h.render(w, r, "pages/tasks/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/tasks/list.html", map[string]any{"Tasks": list}, http.StatusOK)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, 0, TaskInput{Status: StatusTodo}, formErrors{}, http.StatusOK)
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/tasks", "error", shared.UserSafeMessage(err))
		return
	}
	input := TaskInput{Title: task.Title, ProjectID: task.ProjectID, AssigneeID: task.AssigneeID, Status: task.Status, DueAt: task.DueAt}
	h.renderForm(w, r, task.ID, input, formErrors{}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.inputFromForm(w, r)
	if !ok {
		return
	}
	task, errs, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create task failed", slog.Any("error", err))
		errs = formErrors{"general": shared.UserSafeMessage(err)}
	}
	if len(errs) > 0 {
		h.renderForm(w, r, 0, input, errs, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/tasks", "success", "Task \""+task.Title+"\" created")
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
	task, errs, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update task failed", slog.Any("error", err))
		errs = formErrors{"general": shared.UserSafeMessage(err)}
	}
	if len(errs) > 0 {
		h.renderForm(w, r, id, input, errs, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/tasks", "success", "Task \""+task.Title+"\" updated")
}

func (h *Handler) inputFromForm(w http.ResponseWriter, r *http.Request) (TaskInput, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return TaskInput{}, false
	}
	projectID, _ := strconv.ParseInt(r.PostFormValue("project_id"), 10, 64)
	assigneeID, _ := strconv.ParseInt(r.PostFormValue("assignee_id"), 10, 64)
	var dueAt time.Time
	if raw := r.PostFormValue("due_at"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			dueAt = parsed
		}
	}
	return TaskInput{
		Title:      r.PostFormValue("title"),
		ProjectID:  projectID,
		AssigneeID: assigneeID,
		Status:     Status(r.PostFormValue("status")),
		DueAt:      dueAt,
	}, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, taskID int64, input TaskInput, errs formErrors, status int) {
	projectList, err := h.projects.List(r.Context())
	if err != nil {
		h.logger.Error("list projects failed", slog.Any("error", err))
	}
	employeeList, err := h.employees.List(r.Context())
	if err != nil {
		h.logger.Error("list employees failed", slog.Any("error", err))
	}
	dueDate := ""
	if !input.DueAt.IsZero() {
		dueDate = input.DueAt.Format("2006-01-02")
	}
	data := map[string]any{
		"Title":      input.Title,
		"ProjectID":  input.ProjectID,
		"AssigneeID": input.AssigneeID,
		"Status":     input.Status,
		"DueDate":    dueDate,
		"Statuses":   Statuses(),
		"Projects":   projectList,
		"Employees":  employeeList,
		"Errors":     errs,
	}
	if taskID != 0 {
		data["TaskID"] = taskID
	}
	h.render(w, r, "pages/tasks/form.html", data, status)
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
	viewData := view.TemplateData{Title: "Tasks", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
