package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zentrolabs/zentro-engine/internal/domain"
	"github.com/zentrolabs/zentro-engine/internal/ledger"
	"github.com/zentrolabs/zentro-engine/internal/pricing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTrades implements TradeService with canned responses.
type fakeTrades struct {
	placed    domain.Position
	placeErr  error
	cancelErr error
}

func (f *fakeTrades) PlaceBet(ctx context.Context, marketID string, side domain.Side, amount, odds float64) (domain.Position, error) {
	if f.placeErr != nil {
		return domain.Position{}, f.placeErr
	}
	return f.placed, nil
}

func (f *fakeTrades) CancelBet(ctx context.Context, positionID string) error {
	return f.cancelErr
}

func (f *fakeTrades) ClaimPayout(ctx context.Context, positionID string) (domain.Position, error) {
	return f.placed, nil
}

func (f *fakeTrades) SettleMarket(ctx context.Context, marketID string, winner domain.Side) (int, error) {
	if !winner.Valid() {
		return 0, fmt.Errorf("bad winner: %w", domain.ErrInvalidInput)
	}
	return 2, nil
}

// newMux registers handlers on a fresh ServeMux with the routes the real
// server uses, so path parameters resolve the same way.
func newMux(bets *BetHandler, portfolio *PortfolioHandler) *http.ServeMux {
	mux := http.NewServeMux()
	if bets != nil {
		mux.HandleFunc("POST /api/bets", bets.PlaceBet)
		mux.HandleFunc("DELETE /api/bets/{id}", bets.CancelBet)
		mux.HandleFunc("POST /api/markets/{id}/settle", bets.SettleMarket)
	}
	if portfolio != nil {
		mux.HandleFunc("GET /api/positions", portfolio.ListPositions)
		mux.HandleFunc("GET /api/positions/{id}", portfolio.GetPosition)
	}
	return mux
}

func TestPlaceBet(t *testing.T) {
	trades := &fakeTrades{placed: domain.Position{ID: "pos-1", MarketID: "mkt-1", Side: domain.SideYes}}
	mux := newMux(NewBetHandler(trades, testLogger()), nil)

	body := `{"market_id":"mkt-1","side":"yes","amount":100,"odds":0.5}`
	req := httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var pos domain.Position
	if err := json.Unmarshal(rec.Body.Bytes(), &pos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pos.ID != "pos-1" {
		t.Errorf("id = %q", pos.ID)
	}
}

func TestPlaceBetErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"invalid input", fmt.Errorf("bad: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{"network", fmt.Errorf("down: %w", domain.ErrNetwork), http.StatusBadGateway},
		{"state", fmt.Errorf("state: %w", domain.ErrState), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(NewBetHandler(&fakeTrades{placeErr: tt.err}, testLogger()), nil)
			req := httptest.NewRequest(http.MethodPost, "/api/bets",
				strings.NewReader(`{"market_id":"m","side":"yes","amount":1,"odds":1}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestPlaceBetBadJSON(t *testing.T) {
	mux := newMux(NewBetHandler(&fakeTrades{}, testLogger()), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSettleMarket(t *testing.T) {
	mux := newMux(NewBetHandler(&fakeTrades{}, testLogger()), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/markets/mkt-1/settle",
		strings.NewReader(`{"winner":"yes"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["market_id"] != "mkt-1" || resp["settled"] != float64(2) {
		t.Errorf("resp = %v", resp)
	}
}

// portfolioBackend adapts a real ledger so position routes exercise the
// actual storage semantics.
type portfolioBackend struct {
	positions *ledger.Ledger
}

func (b *portfolioBackend) Stats(ctx context.Context) (domain.PortfolioSnapshot, error) {
	return domain.PortfolioSnapshot{}, nil
}

func (b *portfolioBackend) Exposure(marketID string) (domain.Exposure, error) {
	return b.positions.Exposure(marketID), nil
}

func (b *portfolioBackend) Position(id string) (domain.Position, error) {
	return b.positions.Get(id)
}

func (b *portfolioBackend) Positions() []domain.Position {
	return b.positions.All()
}

func TestPositionRoutes(t *testing.T) {
	var n int
	positions := ledger.NewWithIDFunc(func() string {
		n++
		return fmt.Sprintf("pos-%d", n)
	}, testLogger())
	if _, err := positions.Open("mkt-1", domain.SideYes, 100, 0.5); err != nil {
		t.Fatalf("open: %v", err)
	}

	mux := newMux(nil, NewPortfolioHandler(&portfolioBackend{positions: positions}, testLogger()))

	// List.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list listPositionsResponse
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Positions) != 1 {
		t.Errorf("positions = %d, want 1", len(list.Positions))
	}

	// Get by id.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions/pos-1", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	// Unknown id maps to 404.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}

func TestQuote(t *testing.T) {
	h := NewPricingHandler(pricing.DefaultConfig(), nil, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/quotes", h.Quote)

	body := `{"amount":100,"yes_price":0.65,"no_price":0.35,"liquidity":1000}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp quoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Odds.ImpliedProbability != 0.65 {
		t.Errorf("implied probability = %v, want 0.65", resp.Odds.ImpliedProbability)
	}
	if resp.Fees.TotalFees <= 0 || resp.Impact == nil {
		t.Errorf("incomplete quote: %+v", resp)
	}

	// Zero amount is rejected.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/quotes",
		strings.NewReader(`{"amount":0,"yes_price":0.5,"no_price":0.5}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero amount status = %d, want 400", rec.Code)
	}
}
