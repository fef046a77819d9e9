// Package engine runs the decision loop. One tick is a strict pipeline:
// fetch quote, revalue, evaluate exits, execute closes, detect the best
// direction, gate on stability and admission, execute opens. Ticks never
// overlap; shutdown is honored between ticks.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
	"github.com/andrewqian/spreadbot/internal/exits"
	"github.com/andrewqian/spreadbot/internal/risk"
	"github.com/andrewqian/spreadbot/internal/spread"
)

// Executor is the slice of the execution coordinator the engine drives.
type Executor interface {
	OpenPosition(ctx context.Context, opp domain.Opportunity, q domain.Quote, notional float64) (domain.Position, error)
	ClosePosition(ctx context.Context, pos domain.Position, exitQuote domain.Quote, method domain.ExitMethod, realizedPnL float64) (domain.ClosedTrade, error)
	Halted() bool
}

// Book is the slice of the ledger the engine reads and revalues.
type Book interface {
	Revalue(q domain.Quote)
	OpenPositions() []domain.Position
	OpenCount() int
	TotalNotional() float64
}

// Config holds the engine loop parameters.
type Config struct {
	TickInterval    time.Duration
	InitialNotional float64 // notional for each new position
	ExecuteOrders   bool    // false in monitor mode: full pipeline, no orders
}

// Engine owns the best-spread watermark and sequences one tick at a time.
type Engine struct {
	cfg       Config
	feed      domain.QuoteFeed
	calc      *spread.Calculator
	stability *spread.StabilityFilter
	admission *risk.AdmissionController
	evaluator *exits.Evaluator
	executor  Executor
	book      Book
	trades    domain.TradeStore       // optional
	oppCache  domain.OpportunityCache // optional
	bus       domain.SignalBus        // optional
	logger    *slog.Logger

	bestSpreadSeen float64
}

// New assembles an Engine. trades, oppCache and bus may be nil; the engine
// only loses durability and observability, never correctness.
func New(
	cfg Config,
	feed domain.QuoteFeed,
	calc *spread.Calculator,
	stability *spread.StabilityFilter,
	admission *risk.AdmissionController,
	evaluator *exits.Evaluator,
	exec Executor,
	book Book,
	trades domain.TradeStore,
	oppCache domain.OpportunityCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		feed:      feed,
		calc:      calc,
		stability: stability,
		admission: admission,
		evaluator: evaluator,
		executor:  exec,
		book:      book,
		trades:    trades,
		oppCache:  oppCache,
		bus:       bus,
		logger:    logger.With(slog.String("component", "engine")),
	}
}

// Run ticks until the context is cancelled. Transient failures are absorbed
// per tick; only context cancellation stops the loop.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		slog.Duration("tick_interval", e.cfg.TickInterval),
		slog.Bool("execute_orders", e.cfg.ExecuteOrders),
	)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		case <-timer.C:
		}

		e.Tick(ctx)
		timer.Reset(e.cfg.TickInterval)
	}
}

// Tick runs one full pipeline pass. Exported so tests and the monitor mode
// can drive the pipeline without the timer.
func (e *Engine) Tick(ctx context.Context) {
	q, err := e.feed.Fetch(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrQuoteUnavailable) {
			e.logger.Debug("quote unavailable, tick skipped")
		} else {
			e.logger.Warn("quote fetch failed, tick skipped", slog.String("error", err.Error()))
		}
		return
	}

	e.book.Revalue(q)
	e.checkExits(ctx, q)

	opp := e.calc.BestDirection(q)
	e.publishOpportunity(ctx, opp)

	if !opp.IsProfitable {
		return
	}
	// Stability gates entries only and samples profitable ticks only, so an
	// unprofitable dip never pollutes the window. Exits above ran ungated.
	if !e.stability.Observe(opp.Spread) {
		return
	}
	e.tryOpen(ctx, opp, q)
}

// checkExits evaluates every open position and executes the resulting
// closes. The watermark resets when the open set drains.
func (e *Engine) checkExits(ctx context.Context, q domain.Quote) {
	for _, pos := range e.book.OpenPositions() {
		if pos.State == domain.PositionStateClosing {
			continue
		}
		decision := e.evaluator.Evaluate(pos, q)
		if !decision.ShouldExit {
			continue
		}

		pnl := e.evaluator.RealizedPnL(pos, q, decision.Method)
		e.logger.Info("exit triggered",
			slog.String("position_id", pos.ID),
			slog.String("method", string(decision.Method)),
			slog.Float64("realized_pnl", pnl),
		)
		if !e.cfg.ExecuteOrders {
			continue
		}

		trade, err := e.executor.ClosePosition(ctx, pos, q, decision.Method, pnl)
		if err != nil {
			e.logger.Error("close failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		e.recordClose(ctx, trade)
	}

	if e.book.OpenCount() == 0 && e.bestSpreadSeen != 0 {
		e.bestSpreadSeen = 0
	}
}

// tryOpen applies admission and runs the open saga. The first position uses
// the base caps; additional positions also need the spread to have widened
// past the watermark.
func (e *Engine) tryOpen(ctx context.Context, opp domain.Opportunity, q domain.Quote) {
	if !e.cfg.ExecuteOrders || e.executor.Halted() {
		return
	}

	var ok bool
	var reason string
	if e.book.OpenCount() == 0 {
		ok, reason = e.admission.CanOpen(e.book)
	} else {
		ok, reason = e.admission.CanAdd(opp.Spread, e.bestSpreadSeen, e.book)
	}
	if !ok {
		e.logger.Debug("open denied", slog.String("reason", reason))
		return
	}

	pos, err := e.executor.OpenPosition(ctx, opp, q, e.cfg.InitialNotional)
	if err != nil {
		e.logger.Error("open failed",
			slog.String("direction", string(opp.Direction)),
			slog.String("error", err.Error()),
		)
		return
	}

	if opp.Spread > e.bestSpreadSeen {
		e.bestSpreadSeen = opp.Spread
	}
	e.publishEvent(ctx, "position_opened", map[string]any{
		"position_id":  pos.ID,
		"direction":    string(pos.Direction),
		"entry_spread": pos.EntrySpread,
		"notional":     pos.NotionalSize,
	})
}

// recordClose persists and announces a closed trade, best-effort.
func (e *Engine) recordClose(ctx context.Context, trade domain.ClosedTrade) {
	if e.trades != nil {
		if err := e.trades.Insert(ctx, trade); err != nil {
			e.logger.Warn("trade persist failed",
				slog.String("position_id", trade.PositionID),
				slog.String("error", err.Error()),
			)
		}
	}
	e.publishEvent(ctx, "position_closed", map[string]any{
		"position_id":  trade.PositionID,
		"exit_method":  string(trade.ExitMethod),
		"realized_pnl": trade.RealizedPnL,
	})
}

func (e *Engine) publishOpportunity(ctx context.Context, opp domain.Opportunity) {
	if e.oppCache == nil {
		return
	}
	if err := e.oppCache.SetLatest(ctx, opp); err != nil {
		e.logger.Warn("opportunity publish failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) publishEvent(ctx context.Context, event string, fields map[string]any) {
	if e.bus == nil {
		return
	}
	fields["event"] = event
	payload, _ := json.Marshal(fields)
	if err := e.bus.Publish(ctx, "engine", payload); err != nil {
		e.logger.Warn("event publish failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// BestSpreadSeen exposes the watermark for the status surface.
func (e *Engine) BestSpreadSeen() float64 {
	return e.bestSpreadSeen
}
