package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atlas-hq/atlas-admin/internal/assist"
	"github.com/atlas-hq/atlas-admin/internal/auth"
	"github.com/atlas-hq/atlas-admin/internal/customers"
	"github.com/atlas-hq/atlas-admin/internal/dashboard"
	"github.com/atlas-hq/atlas-admin/internal/employees"
	"github.com/atlas-hq/atlas-admin/internal/observability"
	"github.com/atlas-hq/atlas-admin/internal/projects"
	"github.com/atlas-hq/atlas-admin/internal/rbac"
	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/tasks"
	"github.com/atlas-hq/atlas-admin/internal/users"
	"github.com/atlas-hq/atlas-admin/internal/view"
	"github.com/atlas-hq/atlas-admin/jobs"
	"github.com/atlas-hq/atlas-admin/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Templates        *view.Engine
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	RBACHandler      *rbac.Handler
	UsersHandler     *users.Handler
	CustomersHandler *customers.Handler
	EmployeesHandler *employees.Handler
	ProjectsHandler  *projects.Handler
	TasksHandler     *tasks.Handler
	DashboardHandler *dashboard.Handler
	AssistHandler    *assist.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Atlas defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	params.AuthHandler.MountRoutes(r)

	if params.DashboardHandler != nil {
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	}
	if params.RBACHandler != nil {
		r.Route("/roles", params.RBACHandler.MountRoutes)
		r.Route("/permissions", params.RBACHandler.MountPermissionRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.CustomersHandler != nil {
		r.Route("/customers", params.CustomersHandler.MountRoutes)
	}
	if params.EmployeesHandler != nil {
		r.Route("/employees", params.EmployeesHandler.MountRoutes)
	}
	if params.ProjectsHandler != nil {
		r.Route("/projects", params.ProjectsHandler.MountRoutes)
	}
	if params.TasksHandler != nil {
		r.Route("/tasks", params.TasksHandler.MountRoutes)
	}
	if params.AssistHandler != nil {
		r.Route("/assist", params.AssistHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
