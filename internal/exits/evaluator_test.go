package exits

import (
	"testing"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
	"github.com/andrewqian/spreadbot/internal/spread"
)

func testEvaluator(now time.Time) *Evaluator {
	calc := spread.NewCalculator(spread.CalculatorConfig{
		TakerFeeRate:      0.00003,
		MinNetProfit:      0.15,
		ReversalMinSpread: 0.15,
	})
	cfg := EvaluatorConfig{
		TakeProfitTarget: 0.35,
		PositionTimeout:  90 * time.Minute,
	}
	return NewEvaluator(cfg, calc, func() time.Time { return now })
}

// flatQuote has no spread in either direction, so no reversal can trigger.
func flatQuote() domain.Quote {
	return domain.Quote{
		BidA: 423.00, AskA: 423.10,
		BidB: 423.00, AskB: 423.10,
		MidA: 423.05, MidB: 423.05,
	}
}

// reversalQuote makes the B_TO_A spread (bidA - askB) exceed the reversal
// threshold for an A_TO_B position.
func reversalQuote() domain.Quote {
	return domain.Quote{
		BidA: 423.60, AskA: 423.70,
		BidB: 423.00, AskB: 423.10,
		MidA: 423.65, MidB: 423.05,
	}
}

func TestEvaluator_NoExitWhenNothingTriggers(t *testing.T) {
	opened := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := testEvaluator(opened.Add(10 * time.Minute))

	pos := domain.Position{
		Direction:     domain.DirectionAToB,
		OpenedAt:      opened,
		UnrealizedPnL: 0.10,
	}
	if d := ev.Evaluate(pos, flatQuote()); d.ShouldExit {
		t.Fatalf("Evaluate = %+v, want no exit", d)
	}
}

func TestEvaluator_ReversalBeatsTakeProfit(t *testing.T) {
	opened := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := testEvaluator(opened.Add(10 * time.Minute))

	// PnL above the take-profit target AND a live reversal: the reversal
	// must win.
	pos := domain.Position{
		Direction:     domain.DirectionAToB,
		OpenedAt:      opened,
		UnrealizedPnL: 1.0,
	}
	d := ev.Evaluate(pos, reversalQuote())
	if !d.ShouldExit || d.Method != domain.ExitReversal {
		t.Fatalf("Evaluate = %+v, want REVERSAL exit", d)
	}
	if want := 423.60 - 423.10; d.ReversalSpread != want {
		t.Errorf("ReversalSpread = %v, want %v", d.ReversalSpread, want)
	}
}

func TestEvaluator_TakeProfitBeatsTimeout(t *testing.T) {
	opened := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := testEvaluator(opened.Add(3 * time.Hour)) // well past timeout

	pos := domain.Position{
		Direction:     domain.DirectionAToB,
		OpenedAt:      opened,
		UnrealizedPnL: 0.40,
	}
	d := ev.Evaluate(pos, flatQuote())
	if !d.ShouldExit || d.Method != domain.ExitTakeProfit {
		t.Fatalf("Evaluate = %+v, want TAKE_PROFIT exit", d)
	}
}

func TestEvaluator_Timeout(t *testing.T) {
	opened := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just under", opened.Add(89 * time.Minute), false},
		{"at limit", opened.Add(90 * time.Minute), false},
		{"past limit", opened.Add(91 * time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := testEvaluator(tt.now)
			pos := domain.Position{
				Direction:     domain.DirectionAToB,
				OpenedAt:      opened,
				UnrealizedPnL: 0,
			}
			d := ev.Evaluate(pos, flatQuote())
			if d.ShouldExit != tt.want {
				t.Fatalf("ShouldExit = %v, want %v", d.ShouldExit, tt.want)
			}
			if tt.want && d.Method != domain.ExitTimeout {
				t.Errorf("Method = %q, want TIMEOUT", d.Method)
			}
		})
	}
}

func TestEvaluator_RealizedPnL(t *testing.T) {
	opened := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := testEvaluator(opened)

	pos := domain.Position{
		Direction:     domain.DirectionAToB,
		OpenedAt:      opened,
		UnrealizedPnL: 0.27,
	}

	t.Run("reversal books exit spread minus fee", func(t *testing.T) {
		q := reversalQuote()
		rev := q.BidA - q.AskB
		fee := q.AvgMid() * 0.00003 * 2
		want := rev - fee
		if got := ev.RealizedPnL(pos, q, domain.ExitReversal); got != want {
			t.Fatalf("RealizedPnL = %v, want %v", got, want)
		}
	})

	t.Run("non-reversal books last mark", func(t *testing.T) {
		if got := ev.RealizedPnL(pos, flatQuote(), domain.ExitTimeout); got != 0.27 {
			t.Fatalf("RealizedPnL = %v, want 0.27", got)
		}
	})
}
