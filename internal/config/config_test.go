package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[chain]
rpc_url = "http://node:8899"
account = "acct"
escrow = "esc"

[oracle]
max_age = "90s"
symbols = ["SOL/USD", "BTC/USD"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	if cfg.Chain.RPCURL != "http://node:8899" {
		t.Errorf("rpc_url = %q", cfg.Chain.RPCURL)
	}
	if cfg.Oracle.MaxAge.Duration != 90*time.Second {
		t.Errorf("max_age = %v, want 90s", cfg.Oracle.MaxAge.Duration)
	}
	// Untouched sections keep their defaults.
	if cfg.Oracle.PollInterval.Duration != 30*time.Second {
		t.Errorf("poll_interval = %v, want default 30s", cfg.Oracle.PollInterval.Duration)
	}
	if cfg.Pricing.PlatformFeeRate != 0.001 {
		t.Errorf("platform_fee_rate = %v, want default 0.001", cfg.Pricing.PlatformFeeRate)
	}
	if len(cfg.Oracle.Symbols) != 2 {
		t.Errorf("symbols = %v", cfg.Oracle.Symbols)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[chain]
rpc_url = "http://node:8899"
account = "acct"
escrow = "esc"
`)

	t.Setenv("ZENTRO_CHAIN_RPC_URL", "http://other:8899")
	t.Setenv("ZENTRO_ORACLE_MAX_AGE", "2m")
	t.Setenv("ZENTRO_LOG_LEVEL", "warn")
	t.Setenv("ZENTRO_ORACLE_SYMBOLS", "ETH/USD, SOL/USD")
	t.Setenv("ZENTRO_SERVER_CORS_ORIGINS", "https://app.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chain.RPCURL != "http://other:8899" {
		t.Errorf("rpc_url = %q", cfg.Chain.RPCURL)
	}
	if cfg.Oracle.MaxAge.Duration != 2*time.Minute {
		t.Errorf("max_age = %v, want 2m", cfg.Oracle.MaxAge.Duration)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	if len(cfg.Oracle.Symbols) != 2 || cfg.Oracle.Symbols[1] != "SOL/USD" {
		t.Errorf("symbols = %v", cfg.Oracle.Symbols)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.Chain.Account = "acct"
	valid.Chain.Escrow = "esc"
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"missing rpc url", func(c *Config) { c.Chain.RPCURL = "" }, "rpc_url"},
		{"missing account", func(c *Config) { c.Chain.Account = "" }, "account"},
		{"zero max age", func(c *Config) { c.Oracle.MaxAge.Duration = 0 }, "max_age"},
		{"fee rate out of range", func(c *Config) { c.Pricing.PlatformFeeRate = 1.5 }, "platform_fee_rate"},
		{"negative slippage", func(c *Config) { c.Pricing.SlippageTolerance = -0.1 }, "slippage_tolerance"},
		{"redis enabled no addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis"},
		{"bad port", func(c *Config) { c.Server.Port = 99999 }, "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Chain.Account = "acct"
			cfg.Chain.Escrow = "esc"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q missing %q", err, tt.wantSub)
			}
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "hunter2"

	red := RedactedConfig(&cfg)
	if red.Redis.Password != "***" {
		t.Errorf("password = %q, want redacted", red.Redis.Password)
	}
	if cfg.Redis.Password != "hunter2" {
		t.Error("original config mutated")
	}
}
