package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/andrewqian/spreadbot/internal/archive"
	s3blob "github.com/andrewqian/spreadbot/internal/blob/s3"
	"github.com/andrewqian/spreadbot/internal/cache/memory"
	"github.com/andrewqian/spreadbot/internal/cache/redis"
	"github.com/andrewqian/spreadbot/internal/config"
	"github.com/andrewqian/spreadbot/internal/domain"
	"github.com/andrewqian/spreadbot/internal/exits"
	"github.com/andrewqian/spreadbot/internal/ledger"
	"github.com/andrewqian/spreadbot/internal/notify"
	"github.com/andrewqian/spreadbot/internal/risk"
	"github.com/andrewqian/spreadbot/internal/spread"
	"github.com/andrewqian/spreadbot/internal/store/postgres"
	"github.com/andrewqian/spreadbot/internal/venue/hyperliquid"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Quote feed over the venue pair.
	Feed domain.QuoteFeed
	WS   *hyperliquid.WSClient // nil when the websocket feed is disabled

	// Decision core.
	Calc      *spread.Calculator
	Stability *spread.StabilityFilter
	Admission *risk.AdmissionController
	Evaluator *exits.Evaluator
	Ledger    *ledger.Ledger

	// Optional persistence and observability.
	TradeStore  domain.TradeStore       // nil unless Postgres is enabled
	OppCache    domain.OpportunityCache // Redis when enabled, in-process otherwise
	SignalBus   domain.SignalBus        // nil unless Redis is enabled
	LockManager domain.LockManager      // nil unless Redis is enabled
	Archiver    *archive.Archiver       // nil unless the archive is enabled

	// Notifications.
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (optional) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.TradeStore = postgres.NewTradeStore(pgClient.Pool())
	}

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.OppCache = redis.NewOpportunityCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
	} else {
		deps.OppCache = memory.NewOpportunityCache()
	}

	// --- Decision core ---
	deps.Calc = spread.NewCalculator(spread.CalculatorConfig{
		TakerFeeRate:      cfg.Trading.TakerFeeRate,
		MinNetProfit:      cfg.Trading.MinNetProfit,
		ReversalMinSpread: cfg.Exits.ReversalMinSpread,
	})
	deps.Stability = spread.NewStabilityFilter(cfg.Trading.StabilityWindow, cfg.Trading.StabilityTolerance)
	deps.Admission = risk.NewAdmissionController(risk.AdmissionConfig{
		MaxPositions:      cfg.Trading.MaxPositions,
		MaxTotalNotional:  cfg.Trading.MaxTotalNotional,
		MinSpreadIncrease: cfg.Trading.AddSpreadIncrease,
		MinTotalSpread:    cfg.Trading.AddMinSpread,
	})
	deps.Evaluator = exits.NewEvaluator(exits.EvaluatorConfig{
		TakeProfitTarget: cfg.Exits.TakeProfitTarget,
		PositionTimeout:  cfg.Exits.PositionTimeout.Duration,
	}, deps.Calc, nil)
	deps.Ledger = ledger.New(deps.Calc, nil, logger)

	// --- Venue quote feed ---
	rest := hyperliquid.NewClient(cfg.Venue.APIURL)
	if cfg.Venue.UseWebsocket {
		ws := hyperliquid.NewWSClient(cfg.Venue.WsURL, logger)
		if err := ws.Connect(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue websocket: %w", err)
		}
		closers = append(closers, func() { _ = ws.Close() })
		if err := ws.Subscribe(cfg.Venue.CoinA, cfg.Venue.CoinB); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue subscribe: %w", err)
		}
		deps.WS = ws
	}
	deps.Feed = hyperliquid.NewFeed(cfg.Venue.CoinA, cfg.Venue.CoinB, deps.WS, rest, nil, logger)

	// --- S3 archive (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = archive.New(
			s3blob.NewWriter(s3Client),
			deps.Ledger,
			cfg.Archive.Prefix,
			cfg.Archive.Interval.Duration,
			nil,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
