package chain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/zentrolabs/zentro-engine/internal/domain"
)

// Price-feed accounts carry a fixed little-endian layout:
//
//	offset 0  u64  price, scaled by 1e8
//	offset 8  u64  unix milliseconds of the observation
//	offset 16 u32  confidence, scaled by 1e6
//	offset 20 u8   status tag: 1 active, 2 inactive, other stale
const (
	feedDataLen     = 21
	priceScale      = 1e8
	confidenceScale = 1e6
)

// feedAccount derives the account key holding a symbol's price feed.
func feedAccount(symbol string) string {
	return "price_feed/" + symbol
}

// FetchFeed retrieves and decodes the price-feed account for a symbol.
// It implements oracle.FeedSource.
func (c *Client) FetchFeed(ctx context.Context, symbol string) (domain.PriceFeedEntry, error) {
	var result struct {
		Value struct {
			Data string `json:"data"` // base64 account payload
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", []any{feedAccount(symbol), map[string]any{"encoding": "base64"}}, &result); err != nil {
		return domain.PriceFeedEntry{}, err
	}
	if result.Value.Data == "" {
		return domain.PriceFeedEntry{}, fmt.Errorf("chain: feed account for %q is empty: %w", symbol, domain.ErrNotFound)
	}

	raw, err := base64.StdEncoding.DecodeString(result.Value.Data)
	if err != nil {
		return domain.PriceFeedEntry{}, fmt.Errorf("chain: feed %q: decode base64: %v: %w", symbol, err, domain.ErrNetwork)
	}
	return decodeFeedData(symbol, raw)
}

// SubscribeFeed adapts the account-change channel into decoded feed
// updates. Malformed payloads are logged and dropped; they never reach the
// cache. It implements oracle.FeedSource.
func (c *Client) SubscribeFeed(ctx context.Context, symbol string, fn func(domain.PriceFeedEntry)) (domain.Subscription, error) {
	return c.OnAccountChange(ctx, feedAccount(symbol), func(update domain.AccountUpdate) {
		entry, err := decodeFeedData(symbol, update.Data)
		if err != nil {
			c.logger.Warn("dropping malformed feed notification",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			return
		}
		fn(entry)
	})
}

// decodeFeedData parses the binary feed layout. Every field is required; a
// short or malformed payload is rejected outright.
func decodeFeedData(symbol string, data []byte) (domain.PriceFeedEntry, error) {
	if len(data) < feedDataLen {
		return domain.PriceFeedEntry{}, fmt.Errorf("chain: feed %q: payload %d bytes, want at least %d: %w",
			symbol, len(data), feedDataLen, domain.ErrNetwork)
	}

	price := binary.LittleEndian.Uint64(data[0:8])
	ts := binary.LittleEndian.Uint64(data[8:16])
	confidence := binary.LittleEndian.Uint32(data[16:20])

	var status domain.FeedStatus
	switch data[20] {
	case 1:
		status = domain.FeedStatusActive
	case 2:
		status = domain.FeedStatusInactive
	default:
		status = domain.FeedStatusStale
	}

	return domain.PriceFeedEntry{
		Symbol:     symbol,
		Price:      float64(price) / priceScale,
		Timestamp:  time.UnixMilli(int64(ts)).UTC(),
		Confidence: float64(confidence) / confidenceScale,
		Status:     status,
	}, nil
}
