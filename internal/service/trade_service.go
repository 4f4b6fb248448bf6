// Package service coordinates the core components: the pricing engine, the
// oracle feed cache, the position ledger, and the chain client.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zentrolabs/zentro-engine/internal/domain"
	"github.com/zentrolabs/zentro-engine/internal/ledger"
	"github.com/zentrolabs/zentro-engine/internal/metrics"
	"github.com/zentrolabs/zentro-engine/internal/pricing"
)

// winningPayoutPrice is what one share of the winning side pays at
// resolution.
const winningPayoutPrice = 1.0

// TradeService places, cancels, settles, and claims bets. The ledger is
// only touched after the chain transfer is confirmed, so a network failure
// always leaves positions in their pre-call state.
type TradeService struct {
	ledger  *ledger.Ledger
	chain   domain.LedgerClient
	bus     domain.SignalBus
	fees    pricing.Config
	account string // user funding account
	escrow  string // market escrow account
	logger  *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	positions *ledger.Ledger,
	chain domain.LedgerClient,
	bus domain.SignalBus,
	fees pricing.Config,
	account, escrow string,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		ledger:  positions,
		chain:   chain,
		bus:     bus,
		fees:    fees,
		account: account,
		escrow:  escrow,
		logger:  logger,
	}
}

// PlaceBet stakes amount on one side of a market at the given odds. The
// committed amount is transferred to the market escrow; on confirmation a
// pending position is opened.
func (s *TradeService) PlaceBet(ctx context.Context, marketID string, side domain.Side, amount, odds float64) (domain.Position, error) {
	if amount <= 0 {
		return domain.Position{}, fmt.Errorf("trade_service: amount %v must be positive: %w", amount, domain.ErrInvalidInput)
	}
	if !side.Valid() {
		return domain.Position{}, fmt.Errorf("trade_service: side %q: %w", side, domain.ErrInvalidInput)
	}

	fees, err := pricing.TradingFees(amount, s.fees)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: %w", err)
	}

	balance, err := s.chain.GetBalance(ctx, s.account)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: check balance: %w", err)
	}
	if balance < amount {
		return domain.Position{}, fmt.Errorf("trade_service: balance %v below stake %v: %w", balance, amount, domain.ErrInvalidInput)
	}

	receipt, err := s.chain.Submit(ctx, domain.TransferRequest{
		From:   s.account,
		To:     s.escrow,
		Amount: amount,
		Memo:   fmt.Sprintf("bet %s %s", marketID, side),
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: submit transfer: %w", err)
	}

	status, err := s.chain.Confirm(ctx, receipt)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: confirm transfer: %w", err)
	}
	if status != domain.TxCommitted {
		return domain.Position{}, fmt.Errorf("trade_service: transfer %s %s: %w", receipt.Signature, status, domain.ErrNetwork)
	}

	pos, err := s.ledger.Open(marketID, side, amount, odds)
	if err != nil {
		// The escrow transfer committed but no position exists, so this
		// needs operator attention.
		s.logger.ErrorContext(ctx, "trade_service: transfer committed but position open failed",
			slog.String("signature", receipt.Signature),
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return domain.Position{}, fmt.Errorf("trade_service: open position: %w", err)
	}

	metrics.BetsPlaced.WithLabelValues(string(side)).Inc()
	s.publish(ctx, "positions", map[string]any{
		"event":       "bet_placed",
		"position_id": pos.ID,
		"market_id":   marketID,
		"side":        string(side),
		"amount":      amount,
		"odds":        odds,
		"net_amount":  fees.NetAmount,
		"total_fees":  fees.TotalFees,
		"signature":   receipt.Signature,
	})

	s.logger.InfoContext(ctx, "trade_service: bet placed",
		slog.String("position_id", pos.ID),
		slog.String("market_id", marketID),
		slog.String("side", string(side)),
		slog.Float64("amount", amount),
		slog.Float64("total_fees", fees.TotalFees),
	)
	return pos, nil
}

// CancelBet withdraws a still-pending position.
func (s *TradeService) CancelBet(ctx context.Context, positionID string) error {
	pos, err := s.ledger.Cancel(positionID)
	if err != nil {
		return fmt.Errorf("trade_service: cancel: %w", err)
	}

	s.publish(ctx, "positions", map[string]any{
		"event":       "bet_cancelled",
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
	})
	return nil
}

// MatchBet marks a pending position as filled by a counter-order.
func (s *TradeService) MatchBet(ctx context.Context, positionID string) error {
	pos, err := s.ledger.Match(positionID)
	if err != nil {
		return fmt.Errorf("trade_service: match: %w", err)
	}

	s.publish(ctx, "positions", map[string]any{
		"event":       "bet_matched",
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
	})
	return nil
}

// SettleMarket resolves every open position of a market: shares on the
// winning side pay out at full price, the losing side pays zero. It
// returns the number of positions settled. A failure settling one position
// does not stop the sweep; the first error is returned after it completes.
func (s *TradeService) SettleMarket(ctx context.Context, marketID string, winner domain.Side) (int, error) {
	if !winner.Valid() {
		return 0, fmt.Errorf("trade_service: winner %q: %w", winner, domain.ErrInvalidInput)
	}

	var settled int
	var firstErr error
	for _, pos := range s.ledger.PositionsByMarket(marketID) {
		if !pos.Open() {
			continue
		}

		var payout float64
		if pos.Side == winner {
			payout = pos.Shares * winningPayoutPrice
		}

		if _, err := s.ledger.Settle(pos.ID, payout); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.WarnContext(ctx, "trade_service: settle failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		settled++
		metrics.PositionsSettled.Inc()

		s.publish(ctx, "positions", map[string]any{
			"event":       "bet_settled",
			"position_id": pos.ID,
			"market_id":   marketID,
			"winner":      string(winner),
			"payout":      payout,
		})
	}

	s.logger.InfoContext(ctx, "trade_service: market settled",
		slog.String("market_id", marketID),
		slog.String("winner", string(winner)),
		slog.Int("positions", settled),
	)
	return settled, firstErr
}

// ClaimPayout transfers a settled position's payout from the market escrow
// back to the user account and marks it claimed. The claim is recorded only
// after the transfer commits.
func (s *TradeService) ClaimPayout(ctx context.Context, positionID string) (domain.Position, error) {
	pos, err := s.ledger.Get(positionID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: claim: %w", err)
	}
	if pos.Status != domain.PositionStatusSettled || pos.Claimed {
		return domain.Position{}, fmt.Errorf("trade_service: claim on %s position (claimed=%v): %w",
			pos.Status, pos.Claimed, domain.ErrState)
	}

	if pos.Payout > 0 {
		receipt, err := s.chain.Submit(ctx, domain.TransferRequest{
			From:   s.escrow,
			To:     s.account,
			Amount: pos.Payout,
			Memo:   fmt.Sprintf("claim %s", positionID),
		})
		if err != nil {
			return domain.Position{}, fmt.Errorf("trade_service: submit claim: %w", err)
		}
		status, err := s.chain.Confirm(ctx, receipt)
		if err != nil {
			return domain.Position{}, fmt.Errorf("trade_service: confirm claim: %w", err)
		}
		if status != domain.TxCommitted {
			return domain.Position{}, fmt.Errorf("trade_service: claim transfer %s %s: %w",
				receipt.Signature, status, domain.ErrNetwork)
		}
	}

	claimed, err := s.ledger.Claim(positionID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: claim: %w", err)
	}

	s.publish(ctx, "positions", map[string]any{
		"event":       "payout_claimed",
		"position_id": claimed.ID,
		"payout":      claimed.Payout,
	})
	return claimed, nil
}

// publish emits a best-effort event; bus failures are logged, never
// propagated.
func (s *TradeService) publish(ctx context.Context, channel string, event map[string]any) {
	payload, _ := json.Marshal(event)
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "trade_service: publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
