package assist

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hq/atlas-admin/internal/platform/httpx"
)

// Handler exposes description suggestions to the forms.
type Handler struct {
	logger *slog.Logger
	client *Client
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, client *Client) *Handler {
	return &Handler{logger: logger, client: client}
}

// MountRoutes registers assist routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/describe", h.describe)
}

type describeResponse struct {
	Text string `json:"text"`
}

func (h *Handler) describe(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		httpx.Problem(w, http.StatusBadRequest, "Missing subject", "The subject query parameter is required.")
		return
	}
	text, err := h.client.GenerateDescription(r.Context(), subject)
	if err != nil {
		h.logger.Warn("generate description", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Suggestion unavailable", "The description service did not respond.")
		return
	}
	httpx.JSON(w, http.StatusOK, describeResponse{Text: text})
}
