// Package ledger owns the set of open positions and the append-only
// closed-trade history. It is the only mutable state in the decision core;
// every mutation happens under one lock so the HTTP status surface can read
// consistent snapshots while the engine ticks.
package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
	"github.com/andrewqian/spreadbot/internal/spread"
)

// Ledger tracks open positions and closed trades. It implements
// risk.LedgerView for admission checks.
type Ledger struct {
	mu     sync.RWMutex
	open   map[string]domain.Position
	closed []domain.ClosedTrade

	calc   *spread.Calculator
	clock  domain.Clock
	logger *slog.Logger
}

// New creates an empty Ledger revaluing positions with the given calculator.
func New(calc *spread.Calculator, clock domain.Clock, logger *slog.Logger) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{
		open:   make(map[string]domain.Position),
		calc:   calc,
		clock:  clock,
		logger: logger.With(slog.String("component", "ledger")),
	}
}

// Open records a confirmed dual-leg open. The caller (the execution
// coordinator) has already verified both legs filled; a duplicate ID is a
// call-ordering defect.
func (l *Ledger) Open(pos domain.Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.open[pos.ID]; exists {
		return fmt.Errorf("ledger: open %q: duplicate id: %w", pos.ID, domain.ErrInvariantViolation)
	}
	if pos.NotionalSize <= 0 {
		return fmt.Errorf("ledger: open %q: non-positive notional %.4f: %w", pos.ID, pos.NotionalSize, domain.ErrInvariantViolation)
	}

	pos.State = domain.PositionStateOpen
	l.open[pos.ID] = pos

	l.logger.Info("position opened",
		slog.String("position_id", pos.ID),
		slog.String("direction", string(pos.Direction)),
		slog.Float64("entry_spread", pos.EntrySpread),
		slog.Float64("notional", pos.NotionalSize),
	)
	return nil
}

// Revalue recomputes UnrealizedPnL for every open position against the
// current quote. O(n) over the open set, which is capped small.
func (l *Ledger) Revalue(q domain.Quote) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, pos := range l.open {
		pos.UnrealizedPnL = l.calc.UnrealizedPnL(pos, q)
		l.open[id] = pos
	}
}

// Close removes the position from the open set and appends exactly one
// ClosedTrade. Closing a position that is not open returns ErrNotFound;
// the double-close is reported, never silently absorbed.
func (l *Ledger) Close(posID string, exitQuote domain.Quote, method domain.ExitMethod, realizedPnL float64) (domain.ClosedTrade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.open[posID]
	if !ok {
		return domain.ClosedTrade{}, fmt.Errorf("ledger: close %q: %w", posID, domain.ErrNotFound)
	}
	delete(l.open, posID)

	now := l.clock().UTC()
	trade := domain.ClosedTrade{
		PositionID:     pos.ID,
		Direction:      pos.Direction,
		EntrySpread:    pos.EntrySpread,
		EntryQuote:     pos.EntryQuote,
		ExitQuote:      exitQuote,
		NotionalSize:   pos.NotionalSize,
		OpenedAt:       pos.OpenedAt,
		ClosedAt:       now,
		HoldingSeconds: pos.HoldingSeconds(now),
		ExitMethod:     method,
		RealizedPnL:    realizedPnL,
	}
	l.closed = append(l.closed, trade)

	l.logger.Info("position closed",
		slog.String("position_id", pos.ID),
		slog.String("exit_method", string(method)),
		slog.Float64("realized_pnl", realizedPnL),
		slog.Float64("holding_seconds", trade.HoldingSeconds),
	)
	return trade, nil
}

// MarkClosing flags a position while its close legs are in flight so a
// concurrent reader sees the transition. Unknown IDs return ErrNotFound.
func (l *Ledger) MarkClosing(posID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.open[posID]
	if !ok {
		return fmt.Errorf("ledger: mark closing %q: %w", posID, domain.ErrNotFound)
	}
	pos.State = domain.PositionStateClosing
	l.open[posID] = pos
	return nil
}

// MarkOpen reverts a closing position to open after its close legs failed,
// so the next tick evaluates it again. Unknown IDs return ErrNotFound.
func (l *Ledger) MarkOpen(posID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.open[posID]
	if !ok {
		return fmt.Errorf("ledger: mark open %q: %w", posID, domain.ErrNotFound)
	}
	pos.State = domain.PositionStateOpen
	l.open[posID] = pos
	return nil
}

// OpenPositions returns a snapshot copy of the open set, sorted by no
// particular order; callers must not assume ordering.
func (l *Ledger) OpenPositions() []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Position, 0, len(l.open))
	for _, pos := range l.open {
		out = append(out, pos)
	}
	return out
}

// ClosedTrades returns a snapshot copy of the closed-trade history in close
// order.
func (l *Ledger) ClosedTrades() []domain.ClosedTrade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.ClosedTrade, len(l.closed))
	copy(out, l.closed)
	return out
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.open)
}

// TotalNotional returns the summed notional of all open positions.
func (l *Ledger) TotalNotional() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, pos := range l.open {
		total += pos.NotionalSize
	}
	return total
}

// Statistics aggregates the closed-trade history. An empty history yields
// the zero value.
func (l *Ledger) Statistics() domain.LedgerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := domain.LedgerStats{TotalTrades: len(l.closed)}
	if stats.TotalTrades == 0 {
		return stats
	}

	var totalHolding float64
	for _, trade := range l.closed {
		stats.TotalRealizedPnL += trade.RealizedPnL
		totalHolding += trade.HoldingSeconds
		if trade.RealizedPnL > 0 {
			stats.ProfitableTrades++
		} else {
			stats.LosingTrades++
		}
	}
	n := float64(stats.TotalTrades)
	stats.WinRate = float64(stats.ProfitableTrades) / n * 100
	stats.AvgPnL = stats.TotalRealizedPnL / n
	stats.AvgHoldingSec = totalHolding / n
	return stats
}
