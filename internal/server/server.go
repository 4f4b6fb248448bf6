// Package server exposes the engine over HTTP: bet lifecycle, portfolio
// queries, pricing quotes, feed health, Prometheus metrics, and a
// WebSocket event stream.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zentrolabs/zentro-engine/internal/server/handler"
	"github.com/zentrolabs/zentro-engine/internal/server/middleware"
	"github.com/zentrolabs/zentro-engine/internal/server/ws"
)

// Config holds the HTTP server configuration. An empty CORSOrigins list
// allows every origin.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Bets      *handler.BetHandler
	Portfolio *handler.PortfolioHandler
	Pricing   *handler.PricingHandler
}

// Server is the HTTP + WebSocket API server for the betting engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check and metrics.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Bet lifecycle.
	mux.HandleFunc("POST /api/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("DELETE /api/bets/{id}", handlers.Bets.CancelBet)
	mux.HandleFunc("POST /api/bets/{id}/claim", handlers.Bets.ClaimPayout)
	mux.HandleFunc("POST /api/markets/{id}/settle", handlers.Bets.SettleMarket)

	// Portfolio and positions.
	mux.HandleFunc("GET /api/portfolio", handlers.Portfolio.GetStats)
	mux.HandleFunc("GET /api/positions", handlers.Portfolio.ListPositions)
	mux.HandleFunc("GET /api/positions/{id}", handlers.Portfolio.GetPosition)
	mux.HandleFunc("GET /api/markets/{id}/exposure", handlers.Portfolio.GetExposure)

	// Pricing.
	mux.HandleFunc("POST /api/quotes", handlers.Pricing.Quote)
	mux.HandleFunc("GET /api/prices/{symbol}", handlers.Pricing.GetPrice)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
