package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/zentrolabs/zentro-engine/internal/domain"
)

// feederQueueSize bounds the update backlog. A bus outage drops updates
// instead of backing up into the feed cache.
const feederQueueSize = 256

// priceEvent is the JSON shape published to the "prices" channel.
type priceEvent struct {
	Event      string  `json:"event"`
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
	Timestamp  string  `json:"timestamp"`
}

// PriceFeeder forwards winning feed cache updates onto the signal bus as
// "price_update" events. Enqueue is safe to call from the cache's update
// hook: it never blocks and drops updates when the queue is full.
type PriceFeeder struct {
	bus     domain.SignalBus
	updates chan domain.PriceFeedEntry
	logger  *slog.Logger
}

// NewPriceFeeder creates a PriceFeeder publishing on the given bus.
func NewPriceFeeder(bus domain.SignalBus, logger *slog.Logger) *PriceFeeder {
	return &PriceFeeder{
		bus:     bus,
		updates: make(chan domain.PriceFeedEntry, feederQueueSize),
		logger:  logger.With(slog.String("component", "price_feeder")),
	}
}

// Enqueue hands a winning feed update to the feeder without blocking.
func (f *PriceFeeder) Enqueue(entry domain.PriceFeedEntry) {
	select {
	case f.updates <- entry:
	default:
		f.logger.Warn("price_feeder: queue full, update dropped",
			slog.String("symbol", entry.Symbol),
		)
	}
}

// Run drains the queue and publishes each update until ctx is cancelled.
func (f *PriceFeeder) Run(ctx context.Context) error {
	f.logger.Info("price_feeder: started")
	defer f.logger.Info("price_feeder: stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-f.updates:
			f.publish(ctx, entry)
		}
	}
}

// publish emits a best-effort event; bus failures are logged, never
// propagated.
func (f *PriceFeeder) publish(ctx context.Context, entry domain.PriceFeedEntry) {
	payload, err := json.Marshal(priceEvent{
		Event:      "price_update",
		Symbol:     entry.Symbol,
		Price:      entry.Price,
		Confidence: entry.Confidence,
		Status:     string(entry.Status),
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	if err := f.bus.Publish(ctx, "prices", payload); err != nil {
		f.logger.WarnContext(ctx, "price_feeder: publish failed",
			slog.String("symbol", entry.Symbol),
			slog.String("error", err.Error()),
		)
	}
}
