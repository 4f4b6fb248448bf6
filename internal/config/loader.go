package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ZENTRO_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ZENTRO_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject endpoints and credentials at deploy time
// without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "ZENTRO_CHAIN_RPC_URL")
	setStr(&cfg.Chain.WSURL, "ZENTRO_CHAIN_WS_URL")
	setStr(&cfg.Chain.Account, "ZENTRO_CHAIN_ACCOUNT")
	setStr(&cfg.Chain.Escrow, "ZENTRO_CHAIN_ESCROW")

	// ── Oracle ──
	setDuration(&cfg.Oracle.MaxAge, "ZENTRO_ORACLE_MAX_AGE")
	setDuration(&cfg.Oracle.PollInterval, "ZENTRO_ORACLE_POLL_INTERVAL")
	setDuration(&cfg.Oracle.FetchTimeout, "ZENTRO_ORACLE_FETCH_TIMEOUT")
	setStringSlice(&cfg.Oracle.Symbols, "ZENTRO_ORACLE_SYMBOLS")

	// ── Pricing ──
	setFloat64(&cfg.Pricing.PlatformFeeRate, "ZENTRO_PRICING_PLATFORM_FEE_RATE")
	setFloat64(&cfg.Pricing.LiquidityFeeRate, "ZENTRO_PRICING_LIQUIDITY_FEE_RATE")
	setFloat64(&cfg.Pricing.OracleFeeRate, "ZENTRO_PRICING_ORACLE_FEE_RATE")
	setFloat64(&cfg.Pricing.SlippageTolerance, "ZENTRO_PRICING_SLIPPAGE_TOLERANCE")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ZENTRO_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ZENTRO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ZENTRO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ZENTRO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ZENTRO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ZENTRO_REDIS_MAX_RETRIES")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ZENTRO_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ZENTRO_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ZENTRO_SERVER_CORS_ORIGINS")

	// ── Alert ──
	setStr(&cfg.Alert.WebhookURL, "ZENTRO_ALERT_WEBHOOK_URL")
	setStringSlice(&cfg.Alert.Events, "ZENTRO_ALERT_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ZENTRO_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
