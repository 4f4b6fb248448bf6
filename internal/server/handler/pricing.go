package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zentrolabs/zentro-engine/internal/oracle"
	"github.com/zentrolabs/zentro-engine/internal/pricing"
)

// PricingHandler serves quote and price endpoints backed by the pricing
// engine and the oracle feed cache.
type PricingHandler struct {
	fees   pricing.Config
	feeds  *oracle.FeedCache
	logger *slog.Logger
}

// NewPricingHandler creates a PricingHandler with the given fee schedule,
// feed cache, and logger.
func NewPricingHandler(fees pricing.Config, feeds *oracle.FeedCache, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{
		fees:   fees,
		feeds:  feeds,
		logger: logger,
	}
}

// quoteRequest is the JSON body for a bet quote. Liquidity is optional;
// when zero, impact estimation is skipped.
type quoteRequest struct {
	Amount    float64 `json:"amount"`
	YesPrice  float64 `json:"yes_price"`
	NoPrice   float64 `json:"no_price"`
	Liquidity float64 `json:"liquidity"`
}

// quoteResponse carries everything a client needs to preview a bet.
type quoteResponse struct {
	Odds     pricing.MarketOdds    `json:"odds"`
	Fees     pricing.FeeBreakdown  `json:"fees"`
	Impact   *pricing.ImpactResult `json:"impact,omitempty"`
	MinRecvd float64               `json:"minimum_received"`
}

// Quote computes market odds, the fee breakdown, and optionally the price
// impact for a prospective bet.
// POST /api/quotes
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	odds, err := pricing.Odds(req.YesPrice, req.NoPrice)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	fees, err := pricing.TradingFees(req.Amount, h.fees)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := quoteResponse{Odds: odds, Fees: fees}

	if req.Liquidity > 0 {
		impact, err := pricing.PriceImpact(req.Amount, req.Liquidity, odds.ImpliedProbability)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp.Impact = &impact
	}

	minRecvd, err := pricing.MinimumReceived(fees.NetAmount, h.fees.MaxSlippage)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp.MinRecvd = minRecvd

	writeJSON(w, http.StatusOK, resp)
}

// GetPrice returns the cached oracle entry for one symbol, requiring
// freshness.
// GET /api/prices/{symbol}
func (h *PricingHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	entry, err := h.feeds.GetFresh(r.Context(), symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
