// Package exits decides when an open position must be closed. The three
// rules are checked in strict priority order; the first match wins and the
// rest are not consulted.
package exits

import (
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
	"github.com/andrewqian/spreadbot/internal/spread"
)

// EvaluatorConfig holds the exit thresholds.
type EvaluatorConfig struct {
	TakeProfitTarget float64       // unrealized PnL that triggers TAKE_PROFIT
	PositionTimeout  time.Duration // holding duration that triggers TIMEOUT
}

// Decision is the evaluator's verdict for one position on one tick.
type Decision struct {
	ShouldExit     bool
	Method         domain.ExitMethod
	ReversalSpread float64 // populated on the REVERSAL path
}

// Evaluator checks open positions against the exit rules. Priority is fixed:
// reversal, then take-profit, then timeout. Exits are never gated by the
// stability filter.
type Evaluator struct {
	cfg   EvaluatorConfig
	calc  *spread.Calculator
	clock domain.Clock
}

// NewEvaluator creates an Evaluator. A nil clock defaults to time.Now.
func NewEvaluator(cfg EvaluatorConfig, calc *spread.Calculator, clock domain.Clock) *Evaluator {
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{cfg: cfg, calc: calc, clock: clock}
}

// Evaluate returns the exit decision for pos against the current quote. The
// position's UnrealizedPnL is assumed freshly revalued this tick.
func (e *Evaluator) Evaluate(pos domain.Position, q domain.Quote) Decision {
	if ok, rev := e.calc.HasReversal(pos.Direction, q); ok {
		return Decision{ShouldExit: true, Method: domain.ExitReversal, ReversalSpread: rev}
	}

	if pos.UnrealizedPnL > e.cfg.TakeProfitTarget {
		return Decision{ShouldExit: true, Method: domain.ExitTakeProfit}
	}

	if e.clock().Sub(pos.OpenedAt) > e.cfg.PositionTimeout {
		return Decision{ShouldExit: true, Method: domain.ExitTimeout}
	}

	return Decision{}
}

// RealizedPnL computes the PnL booked at close time. A reversal close funds
// itself like a fresh open against the exit mids; the other exits book the
// last revalued mark.
func (e *Evaluator) RealizedPnL(pos domain.Position, exitQuote domain.Quote, method domain.ExitMethod) float64 {
	if method == domain.ExitReversal {
		rev := e.calc.ReversalSpread(pos.Direction, exitQuote)
		return rev - e.calc.OpenFee(exitQuote.AvgMid())
	}
	return pos.UnrealizedPnL
}
