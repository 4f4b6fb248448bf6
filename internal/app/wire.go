package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zentrolabs/zentro-engine/internal/alert"
	"github.com/zentrolabs/zentro-engine/internal/bus"
	busredis "github.com/zentrolabs/zentro-engine/internal/bus/redis"
	"github.com/zentrolabs/zentro-engine/internal/chain"
	"github.com/zentrolabs/zentro-engine/internal/config"
	"github.com/zentrolabs/zentro-engine/internal/domain"
	"github.com/zentrolabs/zentro-engine/internal/ledger"
	"github.com/zentrolabs/zentro-engine/internal/oracle"
	"github.com/zentrolabs/zentro-engine/internal/pricing"
	"github.com/zentrolabs/zentro-engine/internal/server"
	"github.com/zentrolabs/zentro-engine/internal/server/handler"
	"github.com/zentrolabs/zentro-engine/internal/server/ws"
	"github.com/zentrolabs/zentro-engine/internal/service"
)

// Dependencies bundles every component the application needs to operate.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Chain     *chain.Client
	Feeds     *oracle.FeedCache
	Positions *ledger.Ledger
	Bus       domain.SignalBus

	Trades    *service.TradeService
	Portfolio *service.PortfolioService
	Feeder    *service.PriceFeeder

	Alerter *alert.Alerter
	Hub     *ws.Hub
	Server  *server.Server
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Chain client ---
	deps.Chain = chain.NewClient(chain.Config{
		RPCURL: cfg.Chain.RPCURL,
		WSURL:  cfg.Chain.WSURL,
	}, logger)
	closers = append(closers, func() { _ = deps.Chain.Close() })

	// --- Signal bus (Redis when configured, in-process no-op otherwise) ---
	if cfg.Redis.Enabled {
		redisClient, err := busredis.New(ctx, busredis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Bus = busredis.NewSignalBus(redisClient)
	} else {
		deps.Bus = bus.Noop{}
	}

	// --- Oracle feed cache over the chain's feed accounts. Winning
	// updates are forwarded to the "prices" channel by the feeder. ---
	deps.Feeder = service.NewPriceFeeder(deps.Bus, logger)
	deps.Feeds = oracle.NewFeedCache(deps.Chain, oracle.Options{
		MaxAge:       cfg.Oracle.MaxAge.Duration,
		FetchTimeout: cfg.Oracle.FetchTimeout.Duration,
		OnUpdate:     deps.Feeder.Enqueue,
	}, logger)

	// --- Position ledger ---
	deps.Positions = ledger.New(logger)

	// --- Services ---
	fees := pricing.Config{
		BaseFee:      cfg.Pricing.PlatformFeeRate,
		LiquidityFee: cfg.Pricing.LiquidityFeeRate,
		ProtocolFee:  cfg.Pricing.OracleFeeRate,
		MaxSlippage:  cfg.Pricing.SlippageTolerance,
	}
	deps.Trades = service.NewTradeService(
		deps.Positions, deps.Chain, deps.Bus, fees,
		cfg.Chain.Account, cfg.Chain.Escrow, logger,
	)
	deps.Portfolio = service.NewPortfolioService(deps.Positions, deps.Feeds, nil, logger)

	// --- Operator alerts ---
	if cfg.Alert.WebhookURL != "" {
		deps.Alerter = alert.New(
			deps.Bus,
			[]alert.Sender{alert.NewWebhookSender(cfg.Alert.WebhookURL)},
			cfg.Alert.Events,
			logger,
		)
	}

	// --- HTTP server and WebSocket hub ---
	if cfg.Server.Enabled {
		deps.Hub = ws.NewHub(deps.Bus, logger)
		deps.Server = server.NewServer(server.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, server.Handlers{
			Health:    handler.NewHealthHandler(deps.Feeds, logger),
			Bets:      handler.NewBetHandler(deps.Trades, logger),
			Portfolio: handler.NewPortfolioHandler(deps.Portfolio, logger),
			Pricing:   handler.NewPricingHandler(fees, deps.Feeds, logger),
		}, deps.Hub, logger)
	}

	return deps, cleanup, nil
}
