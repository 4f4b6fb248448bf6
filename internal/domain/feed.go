package domain

import "time"

// FeedStatus classifies the trustworthiness of a price feed entry.
type FeedStatus string

const (
	// FeedStatusActive means the feed is publishing and fresh.
	FeedStatusActive FeedStatus = "active"

	// FeedStatusInactive means the feed source has asserted the feed is
	// down. Inactive overrides freshness: an inactive entry never becomes
	// active again just by being recent.
	FeedStatusInactive FeedStatus = "inactive"

	// FeedStatusStale means the last observation is older than the
	// maximum trusted window.
	FeedStatusStale FeedStatus = "stale"
)

// PriceFeedEntry is one symbol's latest price observation. Entries are
// created on the first successful fetch and refreshed in place for the
// lifetime of the process; they become stale, never absent.
type PriceFeedEntry struct {
	Symbol     string
	Price      float64 // non-negative
	Timestamp  time.Time
	Confidence float64 // in [0,1]
	Status     FeedStatus
}

// Age returns how old the observation is relative to now.
func (e PriceFeedEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Fresh reports whether the observation is within the maximum trusted
// window. An inactive entry is never fresh.
func (e PriceFeedEntry) Fresh(now time.Time, maxAge time.Duration) bool {
	if e.Status == FeedStatusInactive {
		return false
	}
	return e.Age(now) <= maxAge
}

// HealthReport summarizes the state of all known feeds. Healthy is true iff
// both symbol lists are empty.
type HealthReport struct {
	Healthy         bool     `json:"healthy"`
	StaleSymbols    []string `json:"stale_symbols"`
	InactiveSymbols []string `json:"inactive_symbols"`
}
