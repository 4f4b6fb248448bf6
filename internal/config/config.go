// Package config defines the top-level configuration for the zentro engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ZENTRO_* environment variables.
type Config struct {
	Chain    ChainConfig   `toml:"chain"`
	Oracle   OracleConfig  `toml:"oracle"`
	Pricing  PricingConfig `toml:"pricing"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Alert    AlertConfig   `toml:"alert"`
	LogLevel string        `toml:"log_level"`
}

// AlertConfig holds operator notification parameters. An empty webhook URL
// disables alerting.
type AlertConfig struct {
	WebhookURL string   `toml:"webhook_url"`
	Events     []string `toml:"events"`
}

// ChainConfig holds ledger node endpoints and the accounts the engine moves
// funds between.
type ChainConfig struct {
	RPCURL  string `toml:"rpc_url"`
	WSURL   string `toml:"ws_url"`
	Account string `toml:"account"`
	Escrow  string `toml:"escrow"`
}

// OracleConfig holds price-feed cache parameters.
type OracleConfig struct {
	MaxAge       duration `toml:"max_age"`
	PollInterval duration `toml:"poll_interval"`
	FetchTimeout duration `toml:"fetch_timeout"`
	// Symbols is the set of feeds the background poller keeps warm.
	Symbols []string `toml:"symbols"`
}

// PricingConfig holds the fee schedule and slippage defaults.
type PricingConfig struct {
	PlatformFeeRate   float64 `toml:"platform_fee_rate"`
	LiquidityFeeRate  float64 `toml:"liquidity_fee_rate"`
	OracleFeeRate     float64 `toml:"oracle_fee_rate"`
	SlippageTolerance float64 `toml:"slippage_tolerance"`
}

// RedisConfig holds signal-bus broker parameters. The bus is optional; when
// Enabled is false the engine runs with an in-process no-op bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// ServerConfig holds HTTP server parameters. An empty CORSOrigins list
// allows every origin.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL: "http://localhost:8899",
			WSURL:  "ws://localhost:8900",
		},
		Oracle: OracleConfig{
			MaxAge:       duration{60 * time.Second},
			PollInterval: duration{30 * time.Second},
			FetchTimeout: duration{10 * time.Second},
			Symbols:      []string{},
		},
		Pricing: PricingConfig{
			PlatformFeeRate:   0.001,
			LiquidityFeeRate:  0.002,
			OracleFeeRate:     0.0005,
			SlippageTolerance: 0.05,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{},
		},
		Alert: AlertConfig{
			Events: []string{"bet_settled", "payout_claimed"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.Account == "" {
		errs = append(errs, "chain: account must not be empty")
	}
	if c.Chain.Escrow == "" {
		errs = append(errs, "chain: escrow must not be empty")
	}

	// Oracle
	if c.Oracle.MaxAge.Duration <= 0 {
		errs = append(errs, "oracle: max_age must be > 0")
	}
	if c.Oracle.PollInterval.Duration <= 0 {
		errs = append(errs, "oracle: poll_interval must be > 0")
	}
	if c.Oracle.FetchTimeout.Duration <= 0 {
		errs = append(errs, "oracle: fetch_timeout must be > 0")
	}

	// Pricing — rates are fractions of the stake, so each must sit in [0, 1).
	for _, rate := range []struct {
		name  string
		value float64
	}{
		{"platform_fee_rate", c.Pricing.PlatformFeeRate},
		{"liquidity_fee_rate", c.Pricing.LiquidityFeeRate},
		{"oracle_fee_rate", c.Pricing.OracleFeeRate},
	} {
		if rate.value < 0 || rate.value >= 1 {
			errs = append(errs, fmt.Sprintf("pricing: %s must be in [0, 1), got %v", rate.name, rate.value))
		}
	}
	if c.Pricing.SlippageTolerance < 0 || c.Pricing.SlippageTolerance >= 1 {
		errs = append(errs, fmt.Sprintf("pricing: slippage_tolerance must be in [0, 1), got %v", c.Pricing.SlippageTolerance))
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
