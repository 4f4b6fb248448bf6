// Package alert turns position lifecycle events from the signal bus into
// operator notifications. Events can be filtered by type so operators
// receive only the alerts they care about.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zentrolabs/zentro-engine/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "webhook").
	Name() string
}

// positionEvent mirrors the envelope the trade service publishes on the
// "positions" channel. Unknown fields are ignored.
type positionEvent struct {
	Event      string  `json:"event"`
	PositionID string  `json:"position_id"`
	MarketID   string  `json:"market_id"`
	Side       string  `json:"side"`
	Amount     float64 `json:"amount"`
	Winner     string  `json:"winner"`
	Payout     float64 `json:"payout"`
}

// Alerter subscribes to the positions channel and forwards selected events
// to its senders. A sender failure never interrupts the event loop.
type Alerter struct {
	bus     domain.SignalBus
	senders []Sender
	events  map[string]bool // allowed event types; empty means all
	logger  *slog.Logger
}

// New creates an Alerter delivering to the given senders. Only events whose
// type appears in events are forwarded; an empty list allows all.
func New(bus domain.SignalBus, senders []Sender, events []string, logger *slog.Logger) *Alerter {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Alerter{
		bus:     bus,
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "alert")),
	}
}

// Run consumes position events until the context is cancelled or the bus
// subscription closes.
func (a *Alerter) Run(ctx context.Context) error {
	msgCh, err := a.bus.Subscribe(ctx, "positions")
	if err != nil {
		return fmt.Errorf("alert: subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-msgCh:
			if !ok {
				return nil
			}
			a.handle(ctx, data)
		}
	}
}

func (a *Alerter) handle(ctx context.Context, data []byte) {
	var evt positionEvent
	if err := json.Unmarshal(data, &evt); err != nil || evt.Event == "" {
		return
	}
	if len(a.events) > 0 && !a.events[evt.Event] {
		return
	}

	title, message := format(evt)
	for _, s := range a.senders {
		if err := s.Send(ctx, title, message); err != nil {
			a.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", evt.Event),
				slog.String("error", err.Error()),
			)
		}
	}
}

// format renders a position event into a short human-readable alert.
func format(evt positionEvent) (title, message string) {
	switch evt.Event {
	case "bet_placed":
		return "Bet placed",
			fmt.Sprintf("%s on %s: %.2f staked (position %s)", evt.Side, evt.MarketID, evt.Amount, evt.PositionID)
	case "bet_matched":
		return "Bet matched",
			fmt.Sprintf("position %s on %s is now matched", evt.PositionID, evt.MarketID)
	case "bet_cancelled":
		return "Bet cancelled",
			fmt.Sprintf("position %s on %s withdrawn", evt.PositionID, evt.MarketID)
	case "bet_settled":
		return "Market settled",
			fmt.Sprintf("%s resolved %s; position %s pays %.2f", evt.MarketID, evt.Winner, evt.PositionID, evt.Payout)
	case "payout_claimed":
		return "Payout claimed",
			fmt.Sprintf("position %s claimed %.2f", evt.PositionID, evt.Payout)
	default:
		return evt.Event, fmt.Sprintf("position %s on %s", evt.PositionID, evt.MarketID)
	}
}
