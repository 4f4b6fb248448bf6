// Package ledger tracks user positions through their lifecycle: pending on
// trade confirmation, matched when a counter-order fills, settled when the
// market resolves, or cancelled while still pending. All transitions are
// validated against the state machine in the domain package; an illegal
// transition fails and leaves the position untouched.
package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zentrolabs/zentro-engine/internal/domain"
	"github.com/zentrolabs/zentro-engine/internal/pricing"
)

// IDFunc generates position identifiers. The default is uuid.NewString;
// tests inject a deterministic generator.
type IDFunc func() string

// Ledger is the in-memory position table. It is the exclusive owner of its
// positions; every accessor returns copies and every mutation goes through
// a validated transition under the table lock.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]domain.Position
	order     []string // insertion order, for stable listings

	newID  IDFunc
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Ledger with UUID position identifiers.
func New(logger *slog.Logger) *Ledger {
	return NewWithIDFunc(uuid.NewString, logger)
}

// NewWithIDFunc creates a Ledger with an injected identifier generator.
func NewWithIDFunc(newID IDFunc, logger *slog.Logger) *Ledger {
	return &Ledger{
		positions: make(map[string]domain.Position),
		newID:     newID,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "ledger")),
	}
}

// Open creates a pending position for a confirmed trade. The average price
// is the probability implied by the given odds and shares are derived from
// the committed amount at that price.
func (l *Ledger) Open(marketID string, side domain.Side, amount, odds float64) (domain.Position, error) {
	if marketID == "" {
		return domain.Position{}, fmt.Errorf("ledger: empty market id: %w", domain.ErrInvalidInput)
	}
	if !side.Valid() {
		return domain.Position{}, fmt.Errorf("ledger: side %q: %w", side, domain.ErrInvalidInput)
	}
	if amount <= 0 {
		return domain.Position{}, fmt.Errorf("ledger: amount %v must be positive: %w", amount, domain.ErrInvalidInput)
	}
	if odds <= 0 {
		return domain.Position{}, fmt.Errorf("ledger: odds %v must be positive: %w", odds, domain.ErrInvalidInput)
	}

	avgPrice := pricing.OddsToProbability(odds)
	pos := domain.Position{
		ID:       l.newID(),
		MarketID: marketID,
		Side:     side,
		Shares:   amount / avgPrice,
		AvgPrice: avgPrice,
		Amount:   amount,
		Odds:     odds,
		Status:   domain.PositionStatusPending,
		OpenedAt: l.now().UTC(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.positions[pos.ID]; exists {
		return domain.Position{}, fmt.Errorf("ledger: duplicate position id %q: %w", pos.ID, domain.ErrInvalidInput)
	}
	l.positions[pos.ID] = pos
	l.order = append(l.order, pos.ID)

	l.logger.Info("position opened",
		slog.String("position_id", pos.ID),
		slog.String("market_id", marketID),
		slog.String("side", string(side)),
		slog.Float64("amount", amount),
		slog.Float64("odds", odds),
	)
	return pos, nil
}

// Match marks a pending position as filled by a counter-order.
func (l *Ledger) Match(id string) (domain.Position, error) {
	return l.transition(id, domain.PositionStatusMatched, func(p *domain.Position) {})
}

// Cancel withdraws a position. Legal only while the position is pending;
// cancelled positions are excluded from active-exposure queries.
func (l *Ledger) Cancel(id string) (domain.Position, error) {
	return l.transition(id, domain.PositionStatusCancelled, func(p *domain.Position) {})
}

// Settle records the market resolution payout for a pending or matched
// position. Realized PnL is payout minus the committed amount.
func (l *Ledger) Settle(id string, payout float64) (domain.Position, error) {
	if payout < 0 {
		return domain.Position{}, fmt.Errorf("ledger: payout %v must be non-negative: %w", payout, domain.ErrInvalidInput)
	}
	return l.transition(id, domain.PositionStatusSettled, func(p *domain.Position) {
		p.Payout = payout
	})
}

// Claim marks a settled position's payout as claimed. Claiming twice, or
// claiming an unsettled position, fails with ErrState.
func (l *Ledger) Claim(id string) (domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[id]
	if !ok {
		return domain.Position{}, fmt.Errorf("ledger: position %q: %w", id, domain.ErrNotFound)
	}
	if pos.Status != domain.PositionStatusSettled || pos.Claimed {
		return domain.Position{}, fmt.Errorf("ledger: claim on %s position %q (claimed=%v): %w",
			pos.Status, id, pos.Claimed, domain.ErrState)
	}

	pos.Claimed = true
	l.positions[id] = pos

	l.logger.Info("payout claimed",
		slog.String("position_id", id),
		slog.Float64("payout", pos.Payout),
	)
	return pos, nil
}

// transition applies a validated state change plus a mutation to one
// position atomically. On any failure the stored position is unchanged.
func (l *Ledger) transition(id string, to domain.PositionStatus, mutate func(*domain.Position)) (domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[id]
	if !ok {
		return domain.Position{}, fmt.Errorf("ledger: position %q: %w", id, domain.ErrNotFound)
	}
	if !domain.CanTransition(pos.Status, to) {
		return domain.Position{}, fmt.Errorf("ledger: position %q %s -> %s: %w", id, pos.Status, to, domain.ErrState)
	}

	pos.Status = to
	mutate(&pos)
	l.positions[id] = pos

	l.logger.Info("position transitioned",
		slog.String("position_id", id),
		slog.String("status", string(to)),
	)
	return pos, nil
}

// Get returns a copy of one position.
func (l *Ledger) Get(id string) (domain.Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.positions[id]
	if !ok {
		return domain.Position{}, fmt.Errorf("ledger: position %q: %w", id, domain.ErrNotFound)
	}
	return pos, nil
}

// Exposure sums the committed amount per side over the open (pending or
// matched) positions of a market.
func (l *Ledger) Exposure(marketID string) domain.Exposure {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var exp domain.Exposure
	for _, pos := range l.positions {
		if pos.MarketID != marketID || !pos.Open() {
			continue
		}
		switch pos.Side {
		case domain.SideYes:
			exp.Yes += pos.Amount
		case domain.SideNo:
			exp.No += pos.Amount
		}
	}
	return exp
}

// PositionsByMarket returns copies of all positions for a market, in
// insertion order.
func (l *Ledger) PositionsByMarket(marketID string) []domain.Position {
	return l.filter(func(p domain.Position) bool { return p.MarketID == marketID })
}

// Active returns the pending and matched positions, in insertion order.
func (l *Ledger) Active() []domain.Position {
	return l.filter(domain.Position.Open)
}

// Settled returns the settled positions, in insertion order.
func (l *Ledger) Settled() []domain.Position {
	return l.filter(func(p domain.Position) bool { return p.Status == domain.PositionStatusSettled })
}

// All returns every position, in insertion order.
func (l *Ledger) All() []domain.Position {
	return l.filter(func(domain.Position) bool { return true })
}

func (l *Ledger) filter(keep func(domain.Position) bool) []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Position, 0, len(l.order))
	for _, id := range l.order {
		if pos := l.positions[id]; keep(pos) {
			out = append(out, pos)
		}
	}
	return out
}
