// Package executor turns an admission decision into venue orders. Every
// position touches two venues, so each open and close runs as a two-leg saga
// with single-step compensation: the coordinator never leaves a partial fill
// unaddressed and never mutates the ledger unless both legs filled.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// PositionBook is the slice of the ledger the coordinator commits to.
type PositionBook interface {
	Open(pos domain.Position) error
	MarkClosing(posID string) error
	MarkOpen(posID string) error
	Close(posID string, exitQuote domain.Quote, method domain.ExitMethod, realizedPnL float64) (domain.ClosedTrade, error)
}

// Alerter delivers operator alerts. Satisfied by notify.Notifier.
type Alerter interface {
	NotifyAll(ctx context.Context, title, message string) error
}

// CoordinatorConfig holds the venue sizing parameters.
type CoordinatorConfig struct {
	SizeStepA float64 // venue A minimum size increment
	SizeStepB float64 // venue B minimum size increment
}

// Coordinator executes dual-leg opens and closes. After a compensation
// failure it refuses further opens until Acknowledge is called; exits keep
// working so existing positions are never stranded.
type Coordinator struct {
	cfg        CoordinatorConfig
	submitterA domain.OrderSubmitter
	submitterB domain.OrderSubmitter
	book       PositionBook
	alerter    Alerter
	clock      domain.Clock
	logger     *slog.Logger

	mu     sync.Mutex
	halted bool
}

// NewCoordinator creates a Coordinator. A nil clock defaults to time.Now; a
// nil alerter disables notifications (paper mode).
func NewCoordinator(
	cfg CoordinatorConfig,
	submitterA, submitterB domain.OrderSubmitter,
	book PositionBook,
	alerter Alerter,
	clock domain.Clock,
	logger *slog.Logger,
) *Coordinator {
	if clock == nil {
		clock = time.Now
	}
	return &Coordinator{
		cfg:        cfg,
		submitterA: submitterA,
		submitterB: submitterB,
		book:       book,
		alerter:    alerter,
		clock:      clock,
		logger:     logger.With(slog.String("component", "executor")),
	}
}

// Halted reports whether opens are suspended after a compensation failure.
func (c *Coordinator) Halted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted
}

// Acknowledge clears the halt after an operator has resolved the naked leg.
func (c *Coordinator) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halted {
		c.halted = false
		c.logger.Warn("halt acknowledged, opens resumed")
	}
}

// SharedQuantity converts a notional into a unit quantity both venues can
// express: notional over the mean mid, rounded down to the coarser of the
// two size steps.
func (c *Coordinator) SharedQuantity(notional float64, q domain.Quote) float64 {
	step := math.Max(c.cfg.SizeStepA, c.cfg.SizeStepB)
	raw := notional / q.AvgMid()
	if step <= 0 {
		return raw
	}
	return math.Floor(raw/step) * step
}

// OpenPosition runs the open saga for the given opportunity: buy leg on the
// cheap venue, sell leg on the rich venue, sequentially. On success the
// position is committed to the book and returned.
func (c *Coordinator) OpenPosition(ctx context.Context, opp domain.Opportunity, q domain.Quote, notional float64) (domain.Position, error) {
	if c.Halted() {
		return domain.Position{}, fmt.Errorf("executor: open: %w", domain.ErrTradingHalted)
	}

	qty := c.SharedQuantity(notional, q)
	if qty <= 0 {
		return domain.Position{}, fmt.Errorf("executor: open: notional %.2f rounds to zero quantity: %w", notional, domain.ErrInvariantViolation)
	}

	legA, legB := openLegs(opp.Direction, qty)
	if err := c.runSaga(ctx, legA, legB); err != nil {
		return domain.Position{}, fmt.Errorf("executor: open %s: %w", opp.Direction, err)
	}

	now := c.clock().UTC()
	pos := domain.Position{
		ID:           domain.PositionID(opp.Direction, now),
		Direction:    opp.Direction,
		EntrySpread:  opp.Spread,
		EntryQuote:   q,
		NotionalSize: notional,
		Quantity:     qty,
		OpenedAt:     now,
	}
	if err := c.book.Open(pos); err != nil {
		return domain.Position{}, fmt.Errorf("executor: commit open: %w", err)
	}
	return pos, nil
}

// ClosePosition runs the close saga: each leg's side is the inverse of what
// the stored direction opened on that venue, submitted reduce-only. On
// success the position is closed in the book with the given method and PnL.
func (c *Coordinator) ClosePosition(ctx context.Context, pos domain.Position, exitQuote domain.Quote, method domain.ExitMethod, realizedPnL float64) (domain.ClosedTrade, error) {
	if err := c.book.MarkClosing(pos.ID); err != nil {
		return domain.ClosedTrade{}, fmt.Errorf("executor: close %s: %w", pos.ID, err)
	}

	legA, legB := closeLegs(pos.Direction, pos.Quantity)
	if err := c.runSaga(ctx, legA, legB); err != nil {
		// The legs are still live on the venues, so hand the position back
		// to the exit loop for retry on the next tick.
		if revertErr := c.book.MarkOpen(pos.ID); revertErr != nil {
			c.logger.Error("close revert failed",
				slog.String("position_id", pos.ID),
				slog.String("error", revertErr.Error()),
			)
		}
		return domain.ClosedTrade{}, fmt.Errorf("executor: close %s: %w", pos.ID, err)
	}

	trade, err := c.book.Close(pos.ID, exitQuote, method, realizedPnL)
	if err != nil {
		return domain.ClosedTrade{}, fmt.Errorf("executor: commit close: %w", err)
	}
	return trade, nil
}

// runSaga submits legA then legB and reconciles the outcome. Exactly one
// fill triggers a single compensating reduce-only order against the filled
// leg; a compensation failure halts further opens.
func (c *Coordinator) runSaga(ctx context.Context, legA, legB domain.LegOrder) error {
	resA := c.submit(ctx, legA)

	// Shutdown is honored between legs, never mid-leg. With leg A filled
	// and leg B unsent the book is lopsided, so compensate before bailing.
	if err := ctx.Err(); err != nil {
		if resA.Outcome == domain.LegFilled {
			if compErr := c.compensate(ctx, legA); compErr != nil {
				return compErr
			}
		}
		return fmt.Errorf("%w: interrupted between legs: %v", domain.ErrLegFailure, err)
	}

	resB := c.submit(ctx, legB)

	filledA := resA.Outcome == domain.LegFilled
	filledB := resB.Outcome == domain.LegFilled

	switch {
	case filledA && filledB:
		return nil
	case !filledA && !filledB:
		return fmt.Errorf("%w: both legs unfilled (A=%s, B=%s)", domain.ErrLegFailure, resA.Outcome, resB.Outcome)
	case filledA:
		if err := c.compensate(ctx, legA); err != nil {
			return err
		}
		return fmt.Errorf("%w: leg B %s (%s), leg A compensated", domain.ErrLegFailure, resB.Outcome, resB.Reason)
	default:
		if err := c.compensate(ctx, legB); err != nil {
			return err
		}
		return fmt.Errorf("%w: leg A %s (%s), leg B compensated", domain.ErrLegFailure, resA.Outcome, resA.Reason)
	}
}

// submit sends one leg and classifies the response. An error from the
// submitter means the venue's answer is unknown, which is never success.
func (c *Coordinator) submit(ctx context.Context, leg domain.LegOrder) domain.LegResult {
	sub := c.submitterA
	if leg.Venue == domain.VenueB {
		sub = c.submitterB
	}

	res, err := sub.Submit(ctx, leg)
	if err != nil {
		c.logger.Error("leg submission error",
			slog.String("client_id", leg.ClientID),
			slog.String("venue", string(leg.Venue)),
			slog.String("error", err.Error()),
		)
		return domain.LegResult{Outcome: domain.LegUnknown, Reason: err.Error()}
	}

	c.logger.Info("leg result",
		slog.String("client_id", leg.ClientID),
		slog.String("venue", string(leg.Venue)),
		slog.Bool("is_buy", leg.IsBuy),
		slog.Float64("quantity", leg.Quantity),
		slog.String("outcome", res.Outcome.String()),
	)
	return res
}

// compensate unwinds one filled leg with a single reduce-only order on the
// same venue, opposite side. No retry: a second ambiguous outcome is exactly
// the state the halt exists for.
func (c *Coordinator) compensate(ctx context.Context, filled domain.LegOrder) error {
	comp := domain.LegOrder{
		ClientID:   uuid.New().String(),
		Venue:      filled.Venue,
		IsBuy:      !filled.IsBuy,
		Quantity:   filled.Quantity,
		ReduceOnly: true,
	}
	c.logger.Warn("compensating partial fill",
		slog.String("venue", string(comp.Venue)),
		slog.Bool("is_buy", comp.IsBuy),
		slog.Float64("quantity", comp.Quantity),
	)

	res := c.submit(ctx, comp)
	if res.Outcome == domain.LegFilled {
		return nil
	}

	c.mu.Lock()
	c.halted = true
	c.mu.Unlock()

	c.logger.Error("compensation failed, halting opens",
		slog.String("venue", string(comp.Venue)),
		slog.String("outcome", res.Outcome.String()),
		slog.String("reason", res.Reason),
	)
	if c.alerter != nil {
		msg := fmt.Sprintf("Compensating order on venue %s did not fill (%s). A naked leg of %.4f units may exist. Opens are halted until acknowledged.",
			comp.Venue, res.Outcome, comp.Quantity)
		if err := c.alerter.NotifyAll(ctx, "COMPENSATION FAILED", msg); err != nil {
			c.logger.Error("alert delivery failed", slog.String("error", err.Error()))
		}
	}
	return fmt.Errorf("%w: venue %s outcome %s", domain.ErrCompensationFailed, comp.Venue, res.Outcome)
}

// openLegs maps a direction onto per-venue sides for an open: A_TO_B buys
// the instrument on venue A and sells it on venue B.
func openLegs(dir domain.Direction, qty float64) (legA, legB domain.LegOrder) {
	buyOnA := dir == domain.DirectionAToB
	legA = domain.LegOrder{ClientID: uuid.New().String(), Venue: domain.VenueA, IsBuy: buyOnA, Quantity: qty}
	legB = domain.LegOrder{ClientID: uuid.New().String(), Venue: domain.VenueB, IsBuy: !buyOnA, Quantity: qty}
	return legA, legB
}

// closeLegs inverts the stored direction's sides, reduce-only. The direction
// is authoritative; the close never probes the venues to discover it.
func closeLegs(dir domain.Direction, qty float64) (legA, legB domain.LegOrder) {
	boughtOnA := dir == domain.DirectionAToB
	legA = domain.LegOrder{ClientID: uuid.New().String(), Venue: domain.VenueA, IsBuy: !boughtOnA, Quantity: qty, ReduceOnly: true}
	legB = domain.LegOrder{ClientID: uuid.New().String(), Venue: domain.VenueB, IsBuy: boughtOnA, Quantity: qty, ReduceOnly: true}
	return legA, legB
}
