package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hq/atlas-admin/internal/platform/httpx"
	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/internal/view"
)

// Handler serves the authenticated home page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/stats.json", h.statsJSON)
}

func (h *Handler) statsJSON(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("dashboard stats failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	displayName := ""
	if sess != nil {
		flash = sess.PopFlash()
		displayName = sess.DisplayName()
	}

	data := map[string]any{"DisplayName": displayName}
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("dashboard stats failed", slog.Any("error", err))
	} else {
		data["Stats"] = stats
	}

	viewData := view.TemplateData{Title: "Dashboard", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if err := h.templates.Render(w, "pages/home.html", viewData); err != nil {
		h.logger.Error("render home", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
