package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/zentrolabs/zentro-engine/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seqIDs returns a deterministic identifier generator: p1, p2, ...
func seqIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("p%d", n)
	}
}

func TestOpen_CreatesPendingPosition(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())

	pos, err := l.Open("market_1", domain.SideYes, 100, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.ID != "p1" {
		t.Errorf("expected deterministic id p1, got %q", pos.ID)
	}
	if pos.Status != domain.PositionStatusPending {
		t.Errorf("expected pending, got %s", pos.Status)
	}
	// Odds of 1.0 imply price 0.5, so 100 committed buys 200 shares.
	if math.Abs(pos.AvgPrice-0.5) > 1e-9 {
		t.Errorf("expected avg price 0.5, got %v", pos.AvgPrice)
	}
	if math.Abs(pos.Shares-200) > 1e-9 {
		t.Errorf("expected 200 shares, got %v", pos.Shares)
	}
}

func TestOpen_UniqueIDs(t *testing.T) {
	l := New(testLogger())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pos, err := l.Open("market_1", domain.SideNo, 10, 2.0)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if seen[pos.ID] {
			t.Fatalf("duplicate id %q", pos.ID)
		}
		seen[pos.ID] = true
	}
}

func TestOpen_Validation(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())

	tests := []struct {
		name     string
		marketID string
		side     domain.Side
		amount   float64
		odds     float64
	}{
		{"zero amount", "m", domain.SideYes, 0, 1},
		{"negative amount", "m", domain.SideYes, -5, 1},
		{"zero odds", "m", domain.SideYes, 10, 0},
		{"bad side", "m", domain.Side("maybe"), 10, 1},
		{"empty market", "", domain.SideYes, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Open(tt.marketID, tt.side, tt.amount, tt.odds)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if got := len(l.All()); got != 0 {
		t.Errorf("failed opens must not create positions, found %d", got)
	}
}

func TestLifecycle_PendingMatchSettle(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())
	pos, _ := l.Open("market_1", domain.SideYes, 100, 1.0)

	matched, err := l.Match(pos.ID)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if matched.Status != domain.PositionStatusMatched {
		t.Errorf("expected matched, got %s", matched.Status)
	}

	settled, err := l.Settle(pos.ID, 200)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != domain.PositionStatusSettled {
		t.Errorf("expected settled, got %s", settled.Status)
	}
	if settled.Payout != 200 {
		t.Errorf("expected payout 200, got %v", settled.Payout)
	}
	if pnl := settled.PnL(); math.Abs(pnl-100) > 1e-9 {
		t.Errorf("expected pnl 100, got %v", pnl)
	}
}

func TestLifecycle_PendingSettleDirectly(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())
	pos, _ := l.Open("market_1", domain.SideNo, 50, 1.0)

	if _, err := l.Settle(pos.ID, 0); err != nil {
		t.Fatalf("settling a pending position should be legal: %v", err)
	}
}

func TestCancel_OnlyWhilePending(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())

	pending, _ := l.Open("market_1", domain.SideYes, 100, 1.0)
	if _, err := l.Cancel(pending.ID); err != nil {
		t.Fatalf("cancelling pending: %v", err)
	}

	matched, _ := l.Open("market_1", domain.SideYes, 100, 1.0)
	l.Match(matched.ID)
	if _, err := l.Cancel(matched.ID); !errors.Is(err, domain.ErrState) {
		t.Errorf("cancelling matched: expected ErrState, got %v", err)
	}
	if got, _ := l.Get(matched.ID); got.Status != domain.PositionStatusMatched {
		t.Errorf("failed cancel mutated status to %s", got.Status)
	}

	settled, _ := l.Open("market_1", domain.SideYes, 100, 1.0)
	l.Settle(settled.ID, 150)
	if _, err := l.Cancel(settled.ID); !errors.Is(err, domain.ErrState) {
		t.Errorf("cancelling settled: expected ErrState, got %v", err)
	}
	if got, _ := l.Get(settled.ID); got.Status != domain.PositionStatusSettled || got.Payout != 150 {
		t.Errorf("failed cancel mutated settled position: %+v", got)
	}
}

func TestIllegalTransitions(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())

	cancelled, _ := l.Open("market_1", domain.SideYes, 100, 1.0)
	l.Cancel(cancelled.ID)

	if _, err := l.Match(cancelled.ID); !errors.Is(err, domain.ErrState) {
		t.Errorf("matching cancelled: expected ErrState, got %v", err)
	}
	if _, err := l.Settle(cancelled.ID, 10); !errors.Is(err, domain.ErrState) {
		t.Errorf("settling cancelled: expected ErrState, got %v", err)
	}

	settled, _ := l.Open("market_1", domain.SideYes, 100, 1.0)
	l.Settle(settled.ID, 120)
	if _, err := l.Settle(settled.ID, 999); !errors.Is(err, domain.ErrState) {
		t.Errorf("double settle: expected ErrState, got %v", err)
	}
	if got, _ := l.Get(settled.ID); got.Payout != 120 {
		t.Errorf("failed settle overwrote payout: %v", got.Payout)
	}
}

func TestSettle_NegativePayout(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())
	pos, _ := l.Open("market_1", domain.SideYes, 100, 1.0)

	if _, err := l.Settle(pos.ID, -1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if got, _ := l.Get(pos.ID); got.Status != domain.PositionStatusPending {
		t.Errorf("failed settle mutated status to %s", got.Status)
	}
}

func TestClaim(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())
	pos, _ := l.Open("market_1", domain.SideYes, 100, 1.0)

	if _, err := l.Claim(pos.ID); !errors.Is(err, domain.ErrState) {
		t.Errorf("claiming unsettled: expected ErrState, got %v", err)
	}

	l.Settle(pos.ID, 200)
	claimed, err := l.Claim(pos.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed.Claimed {
		t.Error("expected claimed flag set")
	}

	if _, err := l.Claim(pos.ID); !errors.Is(err, domain.ErrState) {
		t.Errorf("double claim: expected ErrState, got %v", err)
	}
}

func TestExposure(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())

	p1, _ := l.Open("market_1", domain.SideYes, 100, 1.0) // pending
	l.Open("market_1", domain.SideYes, 50, 1.0)           // pending
	p3, _ := l.Open("market_1", domain.SideNo, 30, 1.0)   // matched
	l.Match(p3.ID)
	p4, _ := l.Open("market_1", domain.SideNo, 70, 1.0) // cancelled
	l.Cancel(p4.ID)
	p5, _ := l.Open("market_1", domain.SideYes, 25, 1.0) // settled
	l.Settle(p5.ID, 40)
	l.Open("market_2", domain.SideYes, 999, 1.0) // other market

	exp := l.Exposure("market_1")
	if math.Abs(exp.Yes-150) > 1e-9 {
		t.Errorf("expected yes exposure 150, got %v", exp.Yes)
	}
	if math.Abs(exp.No-30) > 1e-9 {
		t.Errorf("expected no exposure 30, got %v", exp.No)
	}

	// Cancelling p1 removes it from exposure.
	l.Cancel(p1.ID)
	if exp := l.Exposure("market_1"); math.Abs(exp.Yes-50) > 1e-9 {
		t.Errorf("expected yes exposure 50 after cancel, got %v", exp.Yes)
	}
}

func TestQueries(t *testing.T) {
	l := NewWithIDFunc(seqIDs(), testLogger())

	a, _ := l.Open("market_1", domain.SideYes, 10, 1.0)
	b, _ := l.Open("market_2", domain.SideNo, 20, 1.0)
	c, _ := l.Open("market_1", domain.SideNo, 30, 1.0)
	l.Match(b.ID)
	l.Settle(c.ID, 0)

	byMarket := l.PositionsByMarket("market_1")
	if len(byMarket) != 2 || byMarket[0].ID != a.ID || byMarket[1].ID != c.ID {
		t.Errorf("unexpected market_1 positions: %+v", byMarket)
	}

	active := l.Active()
	if len(active) != 2 || active[0].ID != a.ID || active[1].ID != b.ID {
		t.Errorf("unexpected active positions: %+v", active)
	}

	settled := l.Settled()
	if len(settled) != 1 || settled[0].ID != c.ID {
		t.Errorf("unexpected settled positions: %+v", settled)
	}

	// Query results are copies: mutating them must not touch the ledger.
	active[0].Amount = 99999
	if got, _ := l.Get(a.ID); got.Amount != 10 {
		t.Errorf("query result aliases ledger state: %v", got.Amount)
	}
}
