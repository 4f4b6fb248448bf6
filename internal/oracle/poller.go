package oracle

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// StartPolling runs a recurring refresh for the given symbols. Only feeds
// that are absent or no longer fresh are fetched on a tick; fetches for
// different symbols proceed concurrently. Calling StartPolling while a loop
// is already running replaces the old loop instead of stacking a second
// one.
func (c *FeedCache) StartPolling(symbols []string, interval time.Duration) {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	c.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.pollCancel = cancel
	c.pollDone = done

	go c.pollLoop(ctx, symbols, interval, done)

	c.logger.Info("feed polling started",
		slog.Int("symbols", len(symbols)),
		slog.Duration("interval", interval),
	)
}

// StopPolling cancels the polling loop and waits for it to exit. It is
// idempotent and safe to call when polling was never started.
func (c *FeedCache) StopPolling() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	c.stopLocked()
}

// stopLocked cancels and awaits the current loop. Caller holds pollMu.
func (c *FeedCache) stopLocked() {
	if c.pollCancel == nil {
		return
	}
	c.pollCancel()
	<-c.pollDone
	c.pollCancel = nil
	c.pollDone = nil
	c.logger.Info("feed polling stopped")
}

func (c *FeedCache) pollLoop(ctx context.Context, symbols []string, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Prime the cache immediately rather than waiting a full interval.
	c.pollOnce(ctx, symbols)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx, symbols)
		}
	}
}

// pollOnce refreshes every symbol whose entry is absent or aged. Failures
// are absorbed into the feed's health classification; they never abort the
// loop or the other symbols' fetches.
func (c *FeedCache) pollOnce(ctx context.Context, symbols []string) {
	now := c.now()

	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		if entry, ok := c.peek(symbol); ok && entry.Fresh(now, c.maxAge) {
			continue
		}
		g.Go(func() error {
			if _, err := c.refresh(ctx, symbol); err != nil && ctx.Err() == nil {
				c.logger.Warn("poll refresh failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}
