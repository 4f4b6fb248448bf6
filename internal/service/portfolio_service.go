package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zentrolabs/zentro-engine/internal/domain"
	"github.com/zentrolabs/zentro-engine/internal/ledger"
	"github.com/zentrolabs/zentro-engine/internal/oracle"
	"github.com/zentrolabs/zentro-engine/internal/portfolio"
)

// SymbolFunc maps a market id to the oracle symbol its price trades under.
type SymbolFunc func(marketID string) string

// PortfolioService answers portfolio-level questions: aggregate stats,
// per-market exposure, and position listings. Valuations use the oracle
// feed cache, falling back to cost basis when a feed is unavailable.
type PortfolioService struct {
	ledger    *ledger.Ledger
	feeds     *oracle.FeedCache
	symbolFor SymbolFunc
	logger    *slog.Logger
}

// NewPortfolioService creates a PortfolioService. symbolFor may be nil, in
// which case market ids are used as feed symbols directly.
func NewPortfolioService(positions *ledger.Ledger, feeds *oracle.FeedCache, symbolFor SymbolFunc, logger *slog.Logger) *PortfolioService {
	if symbolFor == nil {
		symbolFor = func(marketID string) string { return marketID }
	}
	return &PortfolioService{
		ledger:    positions,
		feeds:     feeds,
		symbolFor: symbolFor,
		logger:    logger,
	}
}

// Stats computes the aggregate portfolio snapshot across all positions,
// valuing open positions at current oracle prices.
func (s *PortfolioService) Stats(ctx context.Context) (domain.PortfolioSnapshot, error) {
	lookup := portfolio.FeedLookup(ctx, s.feeds, func(marketID string, _ domain.Side) string {
		return s.symbolFor(marketID)
	})
	snap := portfolio.Summarize(s.ledger.All(), lookup)

	s.logger.DebugContext(ctx, "portfolio_service: stats computed",
		slog.Float64("total_value", snap.TotalValue),
		slog.Float64("total_pnl", snap.TotalPnl),
		slog.Int("active_positions", snap.ActivePositions),
	)
	return snap, nil
}

// Exposure returns the total stake per side for one market.
func (s *PortfolioService) Exposure(marketID string) (domain.Exposure, error) {
	if marketID == "" {
		return domain.Exposure{}, fmt.Errorf("portfolio_service: market id is required: %w", domain.ErrInvalidInput)
	}
	return s.ledger.Exposure(marketID), nil
}

// Position returns a single position by id.
func (s *PortfolioService) Position(id string) (domain.Position, error) {
	pos, err := s.ledger.Get(id)
	if err != nil {
		return domain.Position{}, fmt.Errorf("portfolio_service: %w", err)
	}
	return pos, nil
}

// Positions returns every tracked position in opening order.
func (s *PortfolioService) Positions() []domain.Position {
	return s.ledger.All()
}

// ActivePositions returns positions that are still pending or matched.
func (s *PortfolioService) ActivePositions() []domain.Position {
	return s.ledger.Active()
}
