// Package config defines the top-level configuration for the spread trading
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPREADBOT_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Venue    VenueConfig    `toml:"venue"`
	Trading  TradingConfig  `toml:"trading"`
	Exits    ExitConfig     `toml:"exits"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the exchange signing key.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// VenueConfig holds the exchange endpoints and the coin pair. CoinA and
// CoinB are two listings of the same instrument, e.g. "flx:TSLA" and
// "xyz:TSLA".
type VenueConfig struct {
	APIURL       string  `toml:"api_url"`
	WsURL        string  `toml:"ws_url"`
	IsMainnet    bool    `toml:"is_mainnet"`
	CoinA        string  `toml:"coin_a"`
	CoinB        string  `toml:"coin_b"`
	SzDecimals   int     `toml:"sz_decimals"`
	SizeStepA    float64 `toml:"size_step_a"`
	SizeStepB    float64 `toml:"size_step_b"`
	UseWebsocket bool    `toml:"use_websocket"`
}

// TradingConfig holds entry thresholds and position caps.
type TradingConfig struct {
	TakerFeeRate       float64  `toml:"taker_fee_rate"`
	MinNetProfit       float64  `toml:"min_net_profit"`
	InitialNotional    float64  `toml:"initial_notional"`
	MaxPositions       int      `toml:"max_positions"`
	MaxTotalNotional   float64  `toml:"max_total_notional"`
	AddSpreadIncrease  float64  `toml:"add_spread_increase"`
	AddMinSpread       float64  `toml:"add_min_spread"`
	StabilityWindow    int      `toml:"stability_window"`
	StabilityTolerance float64  `toml:"stability_tolerance"`
	TickInterval       duration `toml:"tick_interval"`
}

// ExitConfig holds the exit rule thresholds.
type ExitConfig struct {
	ReversalMinSpread float64  `toml:"reversal_min_spread"`
	TakeProfitTarget  float64  `toml:"take_profit_target"`
	PositionTimeout   duration `toml:"position_timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the closed-trade CSV upload.
type ArchiveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
	Prefix   string   `toml:"prefix"`
}

// ServerConfig holds HTTP status server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`      // empty disables authentication
	CORSOrigins []string `toml:"cors_origins"` // empty allows all origins
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
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

// Defaults returns a Config populated with the production-tuned values.
func Defaults() Config {
	return Config{
		Venue: VenueConfig{
			APIURL:       "https://api.hyperliquid.xyz",
			WsURL:        "wss://api.hyperliquid.xyz/ws",
			IsMainnet:    true,
			CoinA:        "flx:TSLA",
			CoinB:        "xyz:TSLA",
			SzDecimals:   2,
			SizeStepA:    0.01,
			SizeStepB:    0.01,
			UseWebsocket: true,
		},
		Trading: TradingConfig{
			TakerFeeRate:       0.00003,
			MinNetProfit:       0.15,
			InitialNotional:    100,
			MaxPositions:       2,
			MaxTotalNotional:   200,
			AddSpreadIncrease:  0.20,
			AddMinSpread:       0.60,
			StabilityWindow:    2,
			StabilityTolerance: 0.10,
			TickInterval:       duration{2 * time.Second},
		},
		Exits: ExitConfig{
			ReversalMinSpread: 0.15,
			TakeProfitTarget:  0.35,
			PositionTimeout:   duration{90 * time.Minute},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "spreadbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "spreadbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:  false,
			Interval: duration{15 * time.Minute},
			Prefix:   "trades",
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Events: []string{"compensation_failed", "trading_halted", "position_closed"},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"paper":   true,
	"monitor": true,
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

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, paper, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Only live trading needs a signing key.
	if strings.ToLower(c.Mode) == "trade" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode trade")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Venue
	if c.Venue.APIURL == "" {
		errs = append(errs, "venue: api_url must not be empty")
	}
	if c.Venue.CoinA == "" || c.Venue.CoinB == "" {
		errs = append(errs, "venue: coin_a and coin_b must both be set")
	}
	if c.Venue.CoinA == c.Venue.CoinB {
		errs = append(errs, "venue: coin_a and coin_b must differ")
	}
	if c.Venue.SizeStepA <= 0 || c.Venue.SizeStepB <= 0 {
		errs = append(errs, "venue: size steps must be > 0")
	}
	if c.Venue.UseWebsocket && c.Venue.WsURL == "" {
		errs = append(errs, "venue: ws_url is required when use_websocket is set")
	}

	// Trading
	if c.Trading.TakerFeeRate < 0 {
		errs = append(errs, "trading: taker_fee_rate must be >= 0")
	}
	if c.Trading.MinNetProfit <= 0 {
		errs = append(errs, "trading: min_net_profit must be > 0")
	}
	if c.Trading.InitialNotional <= 0 {
		errs = append(errs, "trading: initial_notional must be > 0")
	}
	if c.Trading.MaxPositions < 1 {
		errs = append(errs, "trading: max_positions must be >= 1")
	}
	if c.Trading.MaxTotalNotional < c.Trading.InitialNotional {
		errs = append(errs, "trading: max_total_notional must be >= initial_notional")
	}
	if c.Trading.StabilityWindow < 1 {
		errs = append(errs, "trading: stability_window must be >= 1")
	}
	if c.Trading.StabilityTolerance <= 0 {
		errs = append(errs, "trading: stability_tolerance must be > 0")
	}
	if c.Trading.TickInterval.Duration <= 0 {
		errs = append(errs, "trading: tick_interval must be > 0")
	}

	// Exits
	if c.Exits.ReversalMinSpread <= 0 {
		errs = append(errs, "exits: reversal_min_spread must be > 0")
	}
	if c.Exits.TakeProfitTarget <= 0 {
		errs = append(errs, "exits: take_profit_target must be > 0")
	}
	if c.Exits.PositionTimeout.Duration <= 0 {
		errs = append(errs, "exits: position_timeout must be > 0")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Archive needs S3.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
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
