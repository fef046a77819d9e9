package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andrewqian/spreadbot/internal/crypto"
	"github.com/andrewqian/spreadbot/internal/domain"
	"github.com/andrewqian/spreadbot/internal/engine"
	"github.com/andrewqian/spreadbot/internal/executor"
	"github.com/andrewqian/spreadbot/internal/server"
	"github.com/andrewqian/spreadbot/internal/server/handler"
	"github.com/andrewqian/spreadbot/internal/server/ws"
	"github.com/andrewqian/spreadbot/internal/venue/hyperliquid"
	"github.com/andrewqian/spreadbot/internal/venue/paper"
)

// tradingLockTTL bounds how long a crashed instance can block a restart. The
// lock is released explicitly on clean shutdown.
const tradingLockTTL = 24 * time.Hour

// TradeMode runs the full pipeline with live order submission. It loads the
// signing key, builds one exchange submitter per listing, and takes an
// exclusive per-wallet lock when a lock manager is available.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return fmt.Errorf("trade mode: load signing key: %w", err)
	}
	signer, err := crypto.NewSigner(keyHex)
	if err != nil {
		return fmt.Errorf("trade mode: create signer: %w", err)
	}

	// Two instances trading the same wallet would double-submit legs and
	// corrupt the hedge. The lock makes the second instance fail fast.
	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, "trading:"+signer.Address().Hex(), tradingLockTTL)
		if err != nil {
			return fmt.Errorf("trade mode: acquire trading lock: %w", err)
		}
		defer unlock()
	}

	submitterA := hyperliquid.NewExchange(
		a.cfg.Venue.APIURL, a.cfg.Venue.CoinA, signer,
		a.cfg.Venue.IsMainnet, a.cfg.Venue.SzDecimals, nil, a.logger,
	)
	submitterB := hyperliquid.NewExchange(
		a.cfg.Venue.APIURL, a.cfg.Venue.CoinB, signer,
		a.cfg.Venue.IsMainnet, a.cfg.Venue.SzDecimals, nil, a.logger,
	)

	coord := executor.NewCoordinator(executor.CoordinatorConfig{
		SizeStepA: a.cfg.Venue.SizeStepA,
		SizeStepB: a.cfg.Venue.SizeStepB,
	}, submitterA, submitterB, deps.Ledger, deps.Notifier, nil, a.logger)

	return a.run(ctx, deps, coord, true)
}

// PaperMode runs the full pipeline against live quotes but fills orders
// in-process at the current book prices. No keys, no exchange writes.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting paper mode")

	submitterA := paper.NewSubmitter(domain.VenueA, deps.Feed, a.logger)
	submitterB := paper.NewSubmitter(domain.VenueB, deps.Feed, a.logger)

	coord := executor.NewCoordinator(executor.CoordinatorConfig{
		SizeStepA: a.cfg.Venue.SizeStepA,
		SizeStepB: a.cfg.Venue.SizeStepB,
	}, submitterA, submitterB, deps.Ledger, deps.Notifier, nil, a.logger)

	return a.run(ctx, deps, coord, true)
}

// MonitorMode runs the full evaluation pipeline but never trades: every open
// and close decision is logged and published, not executed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.run(ctx, deps, nil, false)
}

// run starts the engine loop and the optional archive and HTTP goroutines,
// then blocks until the first fatal error or context cancellation. coord is
// nil in monitor mode.
func (a *App) run(ctx context.Context, deps *Dependencies, coord *executor.Coordinator, executeOrders bool) error {
	g, ctx := errgroup.WithContext(ctx)
	startedAt := time.Now().UTC()

	var exec engine.Executor
	if coord != nil {
		exec = coord
	}
	eng := engine.New(engine.Config{
		TickInterval:    a.cfg.Trading.TickInterval.Duration,
		InitialNotional: a.cfg.Trading.InitialNotional,
		ExecuteOrders:   executeOrders,
	},
		deps.Feed, deps.Calc, deps.Stability, deps.Admission, deps.Evaluator,
		exec, deps.Ledger, deps.TradeStore, deps.OppCache, deps.SignalBus,
		a.logger,
	)

	g.Go(func() error {
		return eng.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng, coord, startedAt)
	}

	err := g.Wait()

	stats := deps.Ledger.Statistics()
	a.logger.Info("session summary",
		slog.Int("total_trades", stats.TotalTrades),
		slog.Int("profitable_trades", stats.ProfitableTrades),
		slog.Int("losing_trades", stats.LosingTrades),
		slog.Float64("win_rate_pct", stats.WinRate),
		slog.Float64("total_realized_pnl", stats.TotalRealizedPnL),
	)

	return err
}

// startHTTPServer registers the operations API and, when a signal bus exists,
// the WebSocket event bridge.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine.Engine, coord *executor.Coordinator, startedAt time.Time) {
	var halt handler.HaltStatus
	if coord != nil {
		halt = coord
	}

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Status:      handler.NewStatusHandler(a.cfg.Mode, startedAt, eng, halt, deps.Ledger, a.logger),
		Positions:   handler.NewPositionHandler(deps.Ledger, a.logger),
		Trades:      handler.NewTradeHandler(deps.TradeStore, deps.Ledger, a.logger),
		Opportunity: handler.NewOpportunityHandler(deps.OppCache, a.logger),
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: startedAt,
		})
		g.Go(func() error {
			err := hub.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	})
}
