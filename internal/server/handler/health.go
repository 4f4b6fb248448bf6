package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/zentrolabs/zentro-engine/internal/oracle"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	feeds  *oracle.FeedCache
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided feed cache and
// logger.
func NewHealthHandler(feeds *oracle.FeedCache, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{feeds: feeds, logger: logger}
}

// HealthCheck responds with the server status and the oracle feed health
// report.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.feeds.Health()

	status := "ok"
	if !report.Healthy {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"feeds":     report,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
