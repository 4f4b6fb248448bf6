package domain

import "time"

// Side is the outcome a position backs.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Valid reports whether the side is one of the two recognized outcomes.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// PositionStatus tracks a position through its lifecycle.
type PositionStatus string

const (
	// PositionStatusPending is the initial state after trade confirmation,
	// before a counter-order fills.
	PositionStatusPending PositionStatus = "pending"

	// PositionStatusMatched means a counter-order has filled the position.
	PositionStatusMatched PositionStatus = "matched"

	// PositionStatusSettled is terminal: the market resolved and a payout
	// has been recorded.
	PositionStatusSettled PositionStatus = "settled"

	// PositionStatusCancelled is terminal: the position was withdrawn
	// while still pending.
	PositionStatusCancelled PositionStatus = "cancelled"
)

// validTransitions is the position state machine. Anything not listed here
// is an illegal transition.
var validTransitions = map[PositionStatus][]PositionStatus{
	PositionStatusPending: {PositionStatusMatched, PositionStatusSettled, PositionStatusCancelled},
	PositionStatusMatched: {PositionStatusSettled},
}

// CanTransition reports whether moving a position from one status to
// another is legal.
func CanTransition(from, to PositionStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Position is a user's stake on one side of a market outcome. A Position is
// owned exclusively by the ledger that created it; callers receive copies.
type Position struct {
	ID       string         `json:"id"`
	MarketID string         `json:"market_id"`
	Side     Side           `json:"side"`
	Shares   float64        `json:"shares"`    // non-negative
	AvgPrice float64        `json:"avg_price"` // in (0,1]
	Amount   float64        `json:"amount"`    // committed capital, > 0
	Odds     float64        `json:"odds"`
	Status   PositionStatus `json:"status"`
	Payout   float64        `json:"payout"` // meaningful only when settled
	Claimed  bool           `json:"claimed"`
	OpenedAt time.Time      `json:"opened_at"`
}

// Open reports whether the position still carries market exposure.
func (p Position) Open() bool {
	return p.Status == PositionStatusPending || p.Status == PositionStatusMatched
}

// PnL returns the realized profit for a settled position, or zero for any
// other status. Unrealized PnL requires a current price and is computed by
// the portfolio aggregator.
func (p Position) PnL() float64 {
	if p.Status != PositionStatusSettled {
		return 0
	}
	return p.Payout - p.Amount
}

// Exposure is the committed amount per side over the open positions of a
// single market.
type Exposure struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}
