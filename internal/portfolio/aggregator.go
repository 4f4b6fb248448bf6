// Package portfolio folds a set of positions, revalued at current prices,
// into summary statistics. A snapshot is derived on demand and never
// stored.
package portfolio

import (
	"context"

	"github.com/zentrolabs/zentro-engine/internal/domain"
	"github.com/zentrolabs/zentro-engine/internal/oracle"
)

// PriceLookup resolves the current price of one side of a market. ok is
// false when no usable price is available.
type PriceLookup func(marketID string, side domain.Side) (price float64, ok bool)

// Summarize computes a portfolio snapshot from the given positions and
// price lookup.
//
// Valuation covers open positions and settled positions whose payout has
// not been claimed. Open positions without an available price fall back to
// cost basis rather than being dropped; settled positions without a price
// are worth their payout. Cancelled positions carry no value, cost, or PnL.
func Summarize(positions []domain.Position, lookup PriceLookup) domain.PortfolioSnapshot {
	var snap domain.PortfolioSnapshot
	var totalCost float64
	var settledCount, settledWins int

	for _, pos := range positions {
		switch pos.Status {
		case domain.PositionStatusPending, domain.PositionStatusMatched:
			value := pos.Shares * pos.AvgPrice
			if price, ok := lookup(pos.MarketID, pos.Side); ok {
				value = pos.Shares * price
			}
			cost := pos.Shares * pos.AvgPrice

			snap.TotalValue += value
			snap.TotalPnl += value - cost
			totalCost += cost
			if pos.Shares > 0 {
				snap.ActivePositions++
			}

		case domain.PositionStatusSettled:
			if !pos.Claimed {
				value := pos.Payout
				if price, ok := lookup(pos.MarketID, pos.Side); ok {
					value = pos.Shares * price
				}
				snap.TotalValue += value
			}

			pnl := pos.PnL()
			snap.TotalPnl += pnl
			totalCost += pos.Shares * pos.AvgPrice
			settledCount++
			if pnl > 0 {
				settledWins++
			}

		case domain.PositionStatusCancelled:
			// Withdrawn before exposure; contributes nothing.
		}
	}

	if totalCost > 0 {
		snap.TotalPnlPercentage = snap.TotalPnl / totalCost * 100
	}
	if settledCount > 0 {
		snap.WinRate = float64(settledWins) / float64(settledCount) * 100
	}
	return snap
}

// FeedLookup builds a PriceLookup over the oracle feed cache. symbolFor
// maps a market and side to the feed symbol carrying its price. Stale
// entries are still usable for revaluation; the cache refreshes them in
// the background.
func FeedLookup(ctx context.Context, cache *oracle.FeedCache, symbolFor func(marketID string, side domain.Side) string) PriceLookup {
	return func(marketID string, side domain.Side) (float64, bool) {
		entry, ok := cache.Get(ctx, symbolFor(marketID, side))
		if !ok || entry.Status == domain.FeedStatusInactive {
			return 0, false
		}
		return entry.Price, true
	}
}
