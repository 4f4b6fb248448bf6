// Package oracle maintains a per-symbol cache of external price feed data
// with freshness tracking, a pull (polling) refresh path, and a push
// (subscription) refresh path.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/zentrolabs/zentro-engine/internal/domain"
	"github.com/zentrolabs/zentro-engine/internal/metrics"
)

const (
	// DefaultMaxAge is the maximum trusted window for a price observation.
	DefaultMaxAge = 60 * time.Second

	// DefaultFetchTimeout bounds a single feed fetch. A fetch exceeding it
	// counts as failed; the cached entry keeps degrading toward stale.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultValidateTolerance is the relative price deviation accepted by
	// Validate.
	DefaultValidateTolerance = 0.05
)

// FeedSource supplies feed data for the cache. It is implemented by the
// chain client.
type FeedSource interface {
	// FetchFeed retrieves the current feed entry for a symbol.
	FetchFeed(ctx context.Context, symbol string) (domain.PriceFeedEntry, error)

	// SubscribeFeed registers a push listener for a symbol's feed updates.
	SubscribeFeed(ctx context.Context, symbol string, fn func(domain.PriceFeedEntry)) (domain.Subscription, error)
}

// Options configures a FeedCache. Zero values fall back to the defaults.
type Options struct {
	MaxAge       time.Duration
	FetchTimeout time.Duration

	// OnUpdate, when set, is invoked for every entry that wins the
	// last-writer-wins race, on both the polling and subscription paths.
	// It runs outside the cache lock and must not block.
	OnUpdate func(domain.PriceFeedEntry)
}

// FeedCache caches the freshest known price per symbol. Entries are created
// on first fetch and refreshed in place; they become stale, never absent.
// All methods are safe for concurrent use.
type FeedCache struct {
	source       FeedSource
	maxAge       time.Duration
	fetchTimeout time.Duration
	onUpdate     func(domain.PriceFeedEntry)
	logger       *slog.Logger

	now func() time.Time

	mu      sync.Mutex
	entries map[string]domain.PriceFeedEntry

	// group collapses concurrent refreshes of the same symbol into a
	// single in-flight fetch.
	group singleflight.Group

	pollMu     sync.Mutex
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// NewFeedCache creates a FeedCache over the given source.
func NewFeedCache(source FeedSource, opts Options, logger *slog.Logger) *FeedCache {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &FeedCache{
		source:       source,
		maxAge:       opts.MaxAge,
		fetchTimeout: opts.FetchTimeout,
		onUpdate:     opts.OnUpdate,
		logger:       logger.With(slog.String("component", "oracle")),
		now:          time.Now,
		entries:      make(map[string]domain.PriceFeedEntry),
	}
}

// Get returns the cached entry for symbol. A fresh entry is returned as-is.
// An aged entry is re-classified as stale, returned immediately, and a
// single asynchronous refresh is triggered; Get never blocks on the network
// round-trip. The second return is false when the symbol has never been
// fetched.
func (c *FeedCache) Get(ctx context.Context, symbol string) (domain.PriceFeedEntry, bool) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[symbol]
	if ok && entry.Fresh(now, c.maxAge) {
		c.mu.Unlock()
		return entry, true
	}
	if ok && entry.Status == domain.FeedStatusActive {
		entry.Status = domain.FeedStatusStale
		c.entries[symbol] = entry
	}
	c.mu.Unlock()

	c.refreshAsync(symbol)
	return entry, ok
}

// GetFresh is Get for callers that cannot tolerate stale data. It returns
// ErrStaleData when only a stale or inactive entry is available and
// ErrNotFound when the symbol has never been fetched; in both cases a
// background refresh is still triggered.
func (c *FeedCache) GetFresh(ctx context.Context, symbol string) (domain.PriceFeedEntry, error) {
	entry, ok := c.Get(ctx, symbol)
	if !ok {
		return domain.PriceFeedEntry{}, fmt.Errorf("oracle: feed %q: %w", symbol, domain.ErrNotFound)
	}
	if !entry.Fresh(c.now(), c.maxAge) {
		return domain.PriceFeedEntry{}, fmt.Errorf("oracle: feed %q: %w", symbol, domain.ErrStaleData)
	}
	return entry, nil
}

// GetMany fetches entries for all symbols concurrently and returns whatever
// could be served. A failure fetching one symbol never hides the results of
// the others; symbols with no cached entry and a failed fetch are omitted.
func (c *FeedCache) GetMany(ctx context.Context, symbols []string) map[string]domain.PriceFeedEntry {
	var (
		outMu sync.Mutex
		out   = make(map[string]domain.PriceFeedEntry, len(symbols))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		g.Go(func() error {
			entry, err := c.ensure(ctx, symbol)
			if err != nil {
				c.logger.WarnContext(ctx, "feed fetch failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
				// Fall back to whatever is cached, stale included.
				var ok bool
				entry, ok = c.peek(symbol)
				if !ok {
					return nil
				}
			}
			outMu.Lock()
			out[entry.Symbol] = entry
			outMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Subscribe registers a push listener for a symbol. Updates arriving on the
// subscription are applied to the cache under the same last-writer-wins
// rule as the polling path, so a slow poll response can never overwrite a
// newer push update; fn is only invoked for updates that won.
func (c *FeedCache) Subscribe(ctx context.Context, symbol string, fn func(domain.PriceFeedEntry)) (domain.Subscription, error) {
	sub, err := c.source.SubscribeFeed(ctx, symbol, func(entry domain.PriceFeedEntry) {
		if c.apply(entry) {
			metrics.FeedUpdates.WithLabelValues("push").Inc()
			c.notify(entry)
			fn(entry)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: subscribe %q: %w", symbol, err)
	}

	c.logger.Info("feed subscription registered", slog.String("symbol", symbol))
	return sub, nil
}

// Health classifies every known feed. Healthy is true iff no feed is stale
// or inactive.
func (c *FeedCache) Health() domain.HealthReport {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	report := domain.HealthReport{
		StaleSymbols:    []string{},
		InactiveSymbols: []string{},
	}
	for symbol, entry := range c.entries {
		switch {
		case entry.Status == domain.FeedStatusInactive:
			report.InactiveSymbols = append(report.InactiveSymbols, symbol)
		case !entry.Fresh(now, c.maxAge):
			report.StaleSymbols = append(report.StaleSymbols, symbol)
		}
	}
	sort.Strings(report.StaleSymbols)
	sort.Strings(report.InactiveSymbols)
	report.Healthy = len(report.StaleSymbols) == 0 && len(report.InactiveSymbols) == 0

	metrics.FeedsStale.Set(float64(len(report.StaleSymbols)))
	return report
}

// Validate reports whether an active, fresh entry exists for symbol whose
// price is within the relative tolerance of expectedPrice.
func (c *FeedCache) Validate(symbol string, expectedPrice, tolerance float64) bool {
	if expectedPrice <= 0 {
		return false
	}
	if tolerance <= 0 {
		tolerance = DefaultValidateTolerance
	}

	entry, ok := c.peek(symbol)
	if !ok || entry.Status != domain.FeedStatusActive || !entry.Fresh(c.now(), c.maxAge) {
		return false
	}

	diff := entry.Price - expectedPrice
	if diff < 0 {
		diff = -diff
	}
	return diff/expectedPrice <= tolerance
}

// peek returns the cached entry without touching freshness classification
// or triggering a refresh.
func (c *FeedCache) peek(symbol string) (domain.PriceFeedEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[symbol]
	return entry, ok
}

// ensure returns a fresh entry for symbol, fetching synchronously through
// the single-flight group when the cached one is absent or aged.
func (c *FeedCache) ensure(ctx context.Context, symbol string) (domain.PriceFeedEntry, error) {
	now := c.now()
	if entry, ok := c.peek(symbol); ok && entry.Fresh(now, c.maxAge) {
		return entry, nil
	}
	return c.refresh(ctx, symbol)
}

// refreshAsync triggers a background refresh for symbol. Concurrent callers
// share a single in-flight fetch.
func (c *FeedCache) refreshAsync(symbol string) {
	go func() {
		if _, err := c.refresh(context.Background(), symbol); err != nil {
			c.logger.Warn("background feed refresh failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// refresh performs a single-flight fetch for symbol and applies the result
// under the last-writer-wins rule.
func (c *FeedCache) refresh(ctx context.Context, symbol string) (domain.PriceFeedEntry, error) {
	v, err, _ := c.group.Do(symbol, func() (any, error) {
		// Re-check under the flight lock: a refresh that completed while
		// this caller was queued already did the work.
		if entry, ok := c.peek(symbol); ok && entry.Fresh(c.now(), c.maxAge) {
			return entry, nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()

		entry, err := c.source.FetchFeed(fetchCtx, symbol)
		if err != nil {
			metrics.FeedRefreshes.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("oracle: fetch %q: %w", symbol, err)
		}
		if entry.Symbol == "" {
			entry.Symbol = symbol
		}

		if c.apply(entry) {
			metrics.FeedUpdates.WithLabelValues("poll").Inc()
			c.notify(entry)
		}
		metrics.FeedRefreshes.WithLabelValues("ok").Inc()
		return entry, nil
	})
	if err != nil {
		return domain.PriceFeedEntry{}, err
	}
	return v.(domain.PriceFeedEntry), nil
}

// apply installs entry if it is strictly newer than the cached one.
// Last-writer-wins is decided by the source timestamp, not arrival order.
func (c *FeedCache) apply(entry domain.PriceFeedEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[entry.Symbol]
	if ok && !entry.Timestamp.After(cur.Timestamp) {
		return false
	}
	c.entries[entry.Symbol] = entry
	return true
}

// notify forwards a winning entry to the OnUpdate hook. Called outside the
// cache lock.
func (c *FeedCache) notify(entry domain.PriceFeedEntry) {
	if c.onUpdate != nil {
		c.onUpdate(entry)
	}
}
