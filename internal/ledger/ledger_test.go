package ledger

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
	"github.com/andrewqian/spreadbot/internal/spread"
)

func testLedger(clock domain.Clock) *Ledger {
	calc := spread.NewCalculator(spread.CalculatorConfig{
		TakerFeeRate:      0.00003,
		MinNetProfit:      0.15,
		ReversalMinSpread: 0.15,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(calc, clock, logger)
}

func testQuote() domain.Quote {
	return domain.Quote{
		BidA: 423.10, AskA: 423.20,
		BidB: 423.55, AskB: 423.65,
		MidA: 423.15, MidB: 423.60,
		ObservedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func openPosition(t *testing.T, l *Ledger, id string, notional float64, openedAt time.Time) domain.Position {
	t.Helper()
	pos := domain.Position{
		ID:           id,
		Direction:    domain.DirectionAToB,
		EntrySpread:  0.35,
		EntryQuote:   testQuote(),
		NotionalSize: notional,
		Quantity:     notional / 423.0,
		OpenedAt:     openedAt,
	}
	if err := l.Open(pos); err != nil {
		t.Fatalf("Open(%s): %v", id, err)
	}
	return pos
}

func TestLedger_OpenAndSnapshot(t *testing.T) {
	l := testLedger(nil)
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	openPosition(t, l, "A_TO_B_20260301120000", 100, openedAt)

	if got := l.OpenCount(); got != 1 {
		t.Fatalf("OpenCount = %d, want 1", got)
	}
	if got := l.TotalNotional(); got != 100 {
		t.Fatalf("TotalNotional = %v, want 100", got)
	}

	snap := l.OpenPositions()
	if len(snap) != 1 {
		t.Fatalf("OpenPositions returned %d positions, want 1", len(snap))
	}
	if snap[0].State != domain.PositionStateOpen {
		t.Errorf("State = %q, want %q", snap[0].State, domain.PositionStateOpen)
	}
}

func TestLedger_OpenRejectsDuplicates(t *testing.T) {
	l := testLedger(nil)
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pos := openPosition(t, l, "A_TO_B_20260301120000", 100, openedAt)

	err := l.Open(pos)
	if !errors.Is(err, domain.ErrInvariantViolation) {
		t.Fatalf("duplicate Open error = %v, want ErrInvariantViolation", err)
	}
}

func TestLedger_OpenRejectsNonPositiveNotional(t *testing.T) {
	l := testLedger(nil)
	err := l.Open(domain.Position{ID: "x", NotionalSize: 0})
	if !errors.Is(err, domain.ErrInvariantViolation) {
		t.Fatalf("zero-notional Open error = %v, want ErrInvariantViolation", err)
	}
}

func TestLedger_RevalueUpdatesAllPositions(t *testing.T) {
	l := testLedger(nil)
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	openPosition(t, l, "A_TO_B_20260301120000", 100, openedAt)
	openPosition(t, l, "A_TO_B_20260301120100", 100, openedAt.Add(time.Minute))

	q := testQuote()
	l.Revalue(q)

	calc := spread.NewCalculator(spread.CalculatorConfig{
		TakerFeeRate:      0.00003,
		MinNetProfit:      0.15,
		ReversalMinSpread: 0.15,
	})
	for _, pos := range l.OpenPositions() {
		want := calc.UnrealizedPnL(pos, q)
		if pos.UnrealizedPnL != want {
			t.Errorf("position %s UnrealizedPnL = %v, want %v", pos.ID, pos.UnrealizedPnL, want)
		}
	}
}

func TestLedger_CloseProducesOneTrade(t *testing.T) {
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	closedAt := openedAt.Add(45 * time.Minute)
	l := testLedger(func() time.Time { return closedAt })

	pos := openPosition(t, l, "A_TO_B_20260301120000", 100, openedAt)

	trade, err := l.Close(pos.ID, testQuote(), domain.ExitTakeProfit, 0.42)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	if trade.ExitMethod != domain.ExitTakeProfit {
		t.Errorf("ExitMethod = %q, want %q", trade.ExitMethod, domain.ExitTakeProfit)
	}
	if trade.RealizedPnL != 0.42 {
		t.Errorf("RealizedPnL = %v, want 0.42", trade.RealizedPnL)
	}
	if want := float64(45 * 60); trade.HoldingSeconds != want {
		t.Errorf("HoldingSeconds = %v, want %v", trade.HoldingSeconds, want)
	}
	if got := l.OpenCount(); got != 0 {
		t.Errorf("OpenCount after close = %d, want 0", got)
	}
	if got := len(l.ClosedTrades()); got != 1 {
		t.Errorf("ClosedTrades length = %d, want 1", got)
	}
}

func TestLedger_DoubleCloseIsNotFound(t *testing.T) {
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLedger(func() time.Time { return openedAt.Add(time.Hour) })
	pos := openPosition(t, l, "A_TO_B_20260301120000", 100, openedAt)

	if _, err := l.Close(pos.ID, testQuote(), domain.ExitTimeout, -0.1); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	_, err := l.Close(pos.ID, testQuote(), domain.ExitTimeout, -0.1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second Close error = %v, want ErrNotFound", err)
	}
}

func TestLedger_MarkClosing(t *testing.T) {
	l := testLedger(nil)
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pos := openPosition(t, l, "A_TO_B_20260301120000", 100, openedAt)

	if err := l.MarkClosing(pos.ID); err != nil {
		t.Fatalf("MarkClosing: %v", err)
	}
	if got := l.OpenPositions()[0].State; got != domain.PositionStateClosing {
		t.Errorf("State = %q, want %q", got, domain.PositionStateClosing)
	}
	if err := l.MarkClosing("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("MarkClosing(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLedger_MarkOpenRevertsClosing(t *testing.T) {
	l := testLedger(nil)
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pos := openPosition(t, l, "A_TO_B_20260301120000", 100, openedAt)

	if err := l.MarkClosing(pos.ID); err != nil {
		t.Fatalf("MarkClosing: %v", err)
	}
	if err := l.MarkOpen(pos.ID); err != nil {
		t.Fatalf("MarkOpen: %v", err)
	}
	if got := l.OpenPositions()[0].State; got != domain.PositionStateOpen {
		t.Errorf("State = %q, want %q", got, domain.PositionStateOpen)
	}
	if err := l.MarkOpen("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("MarkOpen(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLedger_StatisticsEmptyIsZero(t *testing.T) {
	l := testLedger(nil)
	stats := l.Statistics()
	if stats != (domain.LedgerStats{}) {
		t.Fatalf("empty Statistics = %+v, want zero value", stats)
	}
}

func TestLedger_StatisticsAggregates(t *testing.T) {
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	closedAt := openedAt.Add(30 * time.Minute)
	l := testLedger(func() time.Time { return closedAt })

	p1 := openPosition(t, l, "A_TO_B_20260301120000", 100, openedAt)
	p2 := openPosition(t, l, "A_TO_B_20260301120100", 100, openedAt)
	p3 := openPosition(t, l, "B_TO_A_20260301120200", 100, openedAt)

	mustClose := func(id string, pnl float64) {
		t.Helper()
		if _, err := l.Close(id, testQuote(), domain.ExitReversal, pnl); err != nil {
			t.Fatalf("Close(%s): %v", id, err)
		}
	}
	mustClose(p1.ID, 0.50)
	mustClose(p2.ID, 0.30)
	mustClose(p3.ID, -0.20)

	stats := l.Statistics()
	if stats.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", stats.TotalTrades)
	}
	if stats.ProfitableTrades != 2 || stats.LosingTrades != 1 {
		t.Errorf("win/loss = %d/%d, want 2/1", stats.ProfitableTrades, stats.LosingTrades)
	}
	if diff := stats.TotalRealizedPnL - 0.60; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalRealizedPnL = %v, want 0.60", stats.TotalRealizedPnL)
	}
	if want := 2.0 / 3.0 * 100; stats.WinRate != want {
		t.Errorf("WinRate = %v, want %v", stats.WinRate, want)
	}
	if want := float64(30 * 60); stats.AvgHoldingSec != want {
		t.Errorf("AvgHoldingSec = %v, want %v", stats.AvgHoldingSec, want)
	}
}
