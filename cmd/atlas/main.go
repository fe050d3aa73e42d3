package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-hq/atlas-admin/internal/app"
	"github.com/atlas-hq/atlas-admin/internal/assist"
	"github.com/atlas-hq/atlas-admin/internal/auth"
	"github.com/atlas-hq/atlas-admin/internal/customers"
	"github.com/atlas-hq/atlas-admin/internal/dashboard"
	"github.com/atlas-hq/atlas-admin/internal/employees"
	"github.com/atlas-hq/atlas-admin/internal/observability"
	"github.com/atlas-hq/atlas-admin/internal/platform/cache"
	"github.com/atlas-hq/atlas-admin/internal/platform/db"
	"github.com/atlas-hq/atlas-admin/internal/projects"
	"github.com/atlas-hq/atlas-admin/internal/rbac"
	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/tasks"
	"github.com/atlas-hq/atlas-admin/internal/users"
	"github.com/atlas-hq/atlas-admin/internal/view"
	"github.com/atlas-hq/atlas-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "atlas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := shared.NewAuditLogger(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	rbacRepo := rbac.NewRepository(pool)
	rbacGuard := rbac.NewInflightGuard()
	rbacStore := rbac.NewStore(rbacRepo, rbacGuard, auditLogger)
	rbacMiddleware := rbac.Middleware{Store: rbacStore, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacStore, templates, csrfManager, sessionManager, rbacMiddleware)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("create jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(logger, usersRepo, rbacStore, jobsClient)
	usersHandler := users.NewHandler(logger, usersService, templates, csrfManager, sessionManager, rbacMiddleware)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService, templates, csrfManager, sessionManager, rbacMiddleware)

	employeesRepo := employees.NewRepository(pool)
	employeesService := employees.NewService(employeesRepo)
	employeesHandler := employees.NewHandler(logger, employeesService, templates, csrfManager, sessionManager, rbacMiddleware)

	projectsRepo := projects.NewRepository(pool)
	projectsService := projects.NewService(projectsRepo)
	projectsHandler := projects.NewHandler(logger, projectsService, customersService, templates, csrfManager, sessionManager, rbacMiddleware)

	tasksRepo := tasks.NewRepository(pool)
	tasksService := tasks.NewService(tasksRepo)
	tasksHandler := tasks.NewHandler(logger, tasksService, projectsService, employeesService, templates, csrfManager, sessionManager, rbacMiddleware)

	dashboardService := dashboard.NewService(logger, pool, redisClient)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, templates, csrfManager)

	assistClient := assist.NewClient(cfg.AssistURL)
	assistHandler := assist.NewHandler(logger, assistClient)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		RBACHandler:      rbacHandler,
		UsersHandler:     usersHandler,
		CustomersHandler: customersHandler,
		EmployeesHandler: employeesHandler,
		ProjectsHandler:  projectsHandler,
		TasksHandler:     tasksHandler,
		DashboardHandler: dashboardHandler,
		AssistHandler:    assistHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
