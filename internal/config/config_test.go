package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateCatchesBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "yolo" },
			wantMsg: "unknown mode",
		},
		{
			name:    "trade mode without key",
			mutate:  func(c *Config) { c.Mode = "trade" },
			wantMsg: "private_key or encrypted_key_path",
		},
		{
			name:    "same coin on both sides",
			mutate:  func(c *Config) { c.Venue.CoinB = c.Venue.CoinA },
			wantMsg: "coin_a and coin_b must differ",
		},
		{
			name:    "non-positive min net profit",
			mutate:  func(c *Config) { c.Trading.MinNetProfit = 0 },
			wantMsg: "min_net_profit",
		},
		{
			name:    "cap below initial notional",
			mutate:  func(c *Config) { c.Trading.MaxTotalNotional = 50 },
			wantMsg: "max_total_notional",
		},
		{
			name:    "zero position timeout",
			mutate:  func(c *Config) { c.Exits.PositionTimeout = duration{} },
			wantMsg: "position_timeout",
		},
		{
			name: "postgres enabled without host",
			mutate: func(c *Config) {
				c.Postgres.Enabled = true
				c.Postgres.Host = ""
			},
			wantMsg: "postgres: host",
		},
		{
			name: "archive enabled without bucket",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.S3.Bucket = ""
			},
			wantMsg: "s3: bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Trading.MinNetProfit = -1
	cfg.Exits.TakeProfitTarget = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "min_net_profit", "take_profit_target"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("combined error missing %q: %v", want, err)
		}
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "monitor"

[venue]
coin_a = "flx:NVDA"
coin_b = "xyz:NVDA"

[trading]
min_net_profit = 0.25
tick_interval = "5s"

[exits]
position_timeout = "2h"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SPREADBOT_TRADING_MIN_NET_PROFIT", "0.30")
	t.Setenv("HYPERLIQUID_PRIVATE_KEY", "deadbeef")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "monitor" {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.Venue.CoinA != "flx:NVDA" || cfg.Venue.CoinB != "xyz:NVDA" {
		t.Errorf("coins = %q / %q", cfg.Venue.CoinA, cfg.Venue.CoinB)
	}
	// Env overrides win over the file value.
	if cfg.Trading.MinNetProfit != 0.30 {
		t.Errorf("MinNetProfit = %v, want env override 0.30", cfg.Trading.MinNetProfit)
	}
	if cfg.Wallet.PrivateKey != "deadbeef" {
		t.Errorf("PrivateKey = %q, want compatibility alias applied", cfg.Wallet.PrivateKey)
	}
	if cfg.Trading.TickInterval.Duration != 5*time.Second {
		t.Errorf("TickInterval = %v", cfg.Trading.TickInterval.Duration)
	}
	if cfg.Exits.PositionTimeout.Duration != 2*time.Hour {
		t.Errorf("PositionTimeout = %v", cfg.Exits.PositionTimeout.Duration)
	}
	// Untouched fields keep their defaults.
	if cfg.Trading.MaxPositions != 2 {
		t.Errorf("MaxPositions = %d, want default 2", cfg.Trading.MaxPositions)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "secret-key"
	cfg.Postgres.Password = "pg-pass"
	cfg.Redis.Password = "redis-pass"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APIKey = "api-key"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"wallet private key": red.Wallet.PrivateKey,
		"postgres password":  red.Postgres.Password,
		"redis password":     red.Redis.Password,
		"s3 secret key":      red.S3.SecretKey,
		"server api key":     red.Server.APIKey,
		"telegram token":     red.Notify.TelegramToken,
	} {
		if got != "***" {
			t.Errorf("%s not redacted: %q", name, got)
		}
	}

	// The original must be untouched.
	if cfg.Wallet.PrivateKey != "secret-key" {
		t.Errorf("original mutated: %q", cfg.Wallet.PrivateKey)
	}
	// Empty secrets stay empty rather than becoming placeholders.
	if red.Wallet.KeyPassword != "" {
		t.Errorf("empty secret became %q", red.Wallet.KeyPassword)
	}
}
