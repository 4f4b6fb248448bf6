package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/zentrolabs/zentro-engine/internal/domain"
)

// PortfolioService defines the methods the portfolio handler requires.
type PortfolioService interface {
	Stats(ctx context.Context) (domain.PortfolioSnapshot, error)
	Exposure(marketID string) (domain.Exposure, error)
	Position(id string) (domain.Position, error)
	Positions() []domain.Position
}

// PortfolioHandler serves portfolio and position query endpoints.
type PortfolioHandler struct {
	portfolio PortfolioService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with the given service and
// logger.
func NewPortfolioHandler(portfolio PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		logger:    logger,
	}
}

// GetStats returns the aggregate portfolio snapshot.
// GET /api/portfolio
func (h *PortfolioHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.portfolio.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: portfolio stats failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Positions []domain.Position `json:"positions"`
}

// ListPositions returns every tracked position in opening order.
// GET /api/positions
func (h *PortfolioHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.portfolio.Positions()
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: positions})
}

// GetPosition returns a single position by id.
// GET /api/positions/{id}
func (h *PortfolioHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.portfolio.Position(pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// GetExposure returns the total stake per side for one market.
// GET /api/markets/{id}/exposure
func (h *PortfolioHandler) GetExposure(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	exp, err := h.portfolio.Exposure(marketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"exposure":  exp,
	})
}
