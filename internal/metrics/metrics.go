// Package metrics provides Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedRefreshes counts pull-path feed fetches by result.
	FeedRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_feed_refreshes_total",
		Help: "Total feed refresh attempts by result",
	}, []string{"result"})

	// FeedUpdates counts cache writes that won the last-writer-wins race,
	// by path (push or poll).
	FeedUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_feed_updates_total",
		Help: "Feed cache updates applied, by delivery path",
	}, []string{"path"})

	// FeedsStale tracks the number of feeds currently classified stale.
	FeedsStale = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zentro_feeds_stale",
		Help: "Number of feeds currently stale",
	})

	// BetsPlaced counts confirmed bets by side.
	BetsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_bets_placed_total",
		Help: "Total bets placed by side",
	}, []string{"side"})

	// PositionsSettled counts position settlements.
	PositionsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zentro_positions_settled_total",
		Help: "Total positions settled",
	})

	// RPCRequests counts ledger RPC calls by method and result.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_rpc_requests_total",
		Help: "Ledger RPC requests by method and result",
	}, []string{"method", "result"})
)
