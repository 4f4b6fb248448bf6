package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zentrolabs/zentro-engine/internal/domain"
)

// TradeService defines the methods the bet handler requires.
type TradeService interface {
	PlaceBet(ctx context.Context, marketID string, side domain.Side, amount, odds float64) (domain.Position, error)
	CancelBet(ctx context.Context, positionID string) error
	ClaimPayout(ctx context.Context, positionID string) (domain.Position, error)
	SettleMarket(ctx context.Context, marketID string, winner domain.Side) (int, error)
}

// BetHandler serves bet lifecycle HTTP endpoints.
type BetHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(trades TradeService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		trades: trades,
		logger: logger,
	}
}

// placeBetRequest is the JSON body for placing a bet.
type placeBetRequest struct {
	MarketID string  `json:"market_id"`
	Side     string  `json:"side"`
	Amount   float64 `json:"amount"`
	Odds     float64 `json:"odds"`
}

// PlaceBet stakes an amount on one side of a market.
// POST /api/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pos, err := h.trades.PlaceBet(r.Context(), req.MarketID, domain.Side(req.Side), req.Amount, req.Odds)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: place bet failed",
			slog.String("market_id", req.MarketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pos)
}

// CancelBet withdraws a still-pending bet.
// DELETE /api/bets/{id}
func (h *BetHandler) CancelBet(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.trades.CancelBet(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "position_id": id})
}

// ClaimPayout claims the payout of a settled bet.
// POST /api/bets/{id}/claim
func (h *BetHandler) ClaimPayout(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	pos, err := h.trades.ClaimPayout(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: claim failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// settleRequest is the JSON body for settling a market.
type settleRequest struct {
	Winner string `json:"winner"`
}

// SettleMarket resolves all open positions of a market.
// POST /api/markets/{id}/settle
func (h *BetHandler) SettleMarket(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settled, err := h.trades.SettleMarket(r.Context(), marketID, domain.Side(req.Winner))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"winner":    req.Winner,
		"settled":   settled,
	})
}
