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
// built-in defaults, applies SPREADBOT_* environment variable overrides, and
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

// applyEnvOverrides reads well-known SPREADBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SPREADBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.PrivateKey, "HYPERLIQUID_PRIVATE_KEY") // compatibility alias
	setStr(&cfg.Wallet.EncryptedKeyPath, "SPREADBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SPREADBOT_WALLET_KEY_PASSWORD")

	// ── Venue ──
	setStr(&cfg.Venue.APIURL, "SPREADBOT_VENUE_API_URL")
	setStr(&cfg.Venue.WsURL, "SPREADBOT_VENUE_WS_URL")
	setBool(&cfg.Venue.IsMainnet, "SPREADBOT_VENUE_IS_MAINNET")
	setStr(&cfg.Venue.CoinA, "SPREADBOT_VENUE_COIN_A")
	setStr(&cfg.Venue.CoinB, "SPREADBOT_VENUE_COIN_B")
	setInt(&cfg.Venue.SzDecimals, "SPREADBOT_VENUE_SZ_DECIMALS")
	setFloat64(&cfg.Venue.SizeStepA, "SPREADBOT_VENUE_SIZE_STEP_A")
	setFloat64(&cfg.Venue.SizeStepB, "SPREADBOT_VENUE_SIZE_STEP_B")
	setBool(&cfg.Venue.UseWebsocket, "SPREADBOT_VENUE_USE_WEBSOCKET")

	// ── Trading ──
	setFloat64(&cfg.Trading.TakerFeeRate, "SPREADBOT_TRADING_TAKER_FEE_RATE")
	setFloat64(&cfg.Trading.MinNetProfit, "SPREADBOT_TRADING_MIN_NET_PROFIT")
	setFloat64(&cfg.Trading.InitialNotional, "SPREADBOT_TRADING_INITIAL_NOTIONAL")
	setInt(&cfg.Trading.MaxPositions, "SPREADBOT_TRADING_MAX_POSITIONS")
	setFloat64(&cfg.Trading.MaxTotalNotional, "SPREADBOT_TRADING_MAX_TOTAL_NOTIONAL")
	setFloat64(&cfg.Trading.AddSpreadIncrease, "SPREADBOT_TRADING_ADD_SPREAD_INCREASE")
	setFloat64(&cfg.Trading.AddMinSpread, "SPREADBOT_TRADING_ADD_MIN_SPREAD")
	setInt(&cfg.Trading.StabilityWindow, "SPREADBOT_TRADING_STABILITY_WINDOW")
	setFloat64(&cfg.Trading.StabilityTolerance, "SPREADBOT_TRADING_STABILITY_TOLERANCE")
	setDuration(&cfg.Trading.TickInterval, "SPREADBOT_TRADING_TICK_INTERVAL")

	// ── Exits ──
	setFloat64(&cfg.Exits.ReversalMinSpread, "SPREADBOT_EXITS_REVERSAL_MIN_SPREAD")
	setFloat64(&cfg.Exits.TakeProfitTarget, "SPREADBOT_EXITS_TAKE_PROFIT_TARGET")
	setDuration(&cfg.Exits.PositionTimeout, "SPREADBOT_EXITS_POSITION_TIMEOUT")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SPREADBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SPREADBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SPREADBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SPREADBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SPREADBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SPREADBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SPREADBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SPREADBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SPREADBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SPREADBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SPREADBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPREADBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPREADBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPREADBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPREADBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPREADBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPREADBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPREADBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SPREADBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPREADBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPREADBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPREADBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPREADBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPREADBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPREADBOT_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SPREADBOT_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "SPREADBOT_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.Prefix, "SPREADBOT_ARCHIVE_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPREADBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SPREADBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SPREADBOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SPREADBOT_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SPREADBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPREADBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPREADBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SPREADBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPREADBOT_MODE")
	setStr(&cfg.LogLevel, "SPREADBOT_LOG_LEVEL")
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
