package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
	"github.com/andrewqian/spreadbot/internal/executor"
	"github.com/andrewqian/spreadbot/internal/exits"
	"github.com/andrewqian/spreadbot/internal/ledger"
	"github.com/andrewqian/spreadbot/internal/risk"
	"github.com/andrewqian/spreadbot/internal/spread"
)

// stubFeed returns a fixed quote or error.
type stubFeed struct {
	q   domain.Quote
	err error
}

func (f *stubFeed) Fetch(context.Context) (domain.Quote, error) {
	return f.q, f.err
}

// fakeExecutor commits to the real ledger so the engine sees consistent
// state, and records what it was asked to do.
type fakeExecutor struct {
	led    *ledger.Ledger
	clock  domain.Clock
	halted bool

	opens  []domain.Opportunity
	closes []string
}

func (x *fakeExecutor) OpenPosition(_ context.Context, opp domain.Opportunity, q domain.Quote, notional float64) (domain.Position, error) {
	x.opens = append(x.opens, opp)
	now := x.clock().UTC()
	pos := domain.Position{
		ID:           domain.PositionID(opp.Direction, now),
		Direction:    opp.Direction,
		EntrySpread:  opp.Spread,
		EntryQuote:   q,
		NotionalSize: notional,
		Quantity:     notional / q.AvgMid(),
		OpenedAt:     now,
	}
	if err := x.led.Open(pos); err != nil {
		return domain.Position{}, err
	}
	return pos, nil
}

func (x *fakeExecutor) ClosePosition(_ context.Context, pos domain.Position, q domain.Quote, method domain.ExitMethod, pnl float64) (domain.ClosedTrade, error) {
	x.closes = append(x.closes, pos.ID)
	return x.led.Close(pos.ID, q, method, pnl)
}

func (x *fakeExecutor) Halted() bool { return x.halted }

type harness struct {
	engine *Engine
	feed   *stubFeed
	exec   *fakeExecutor
	led    *ledger.Ledger
	now    *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := &harness{now: &now}
	clock := func() time.Time { return *h.now }

	calc := spread.NewCalculator(spread.CalculatorConfig{
		TakerFeeRate:      0.00003,
		MinNetProfit:      0.15,
		ReversalMinSpread: 10, // keep reversal exits out of the way by default
	})
	stability := spread.NewStabilityFilter(2, 0.1)
	admission := risk.NewAdmissionController(risk.AdmissionConfig{
		MaxPositions:      2,
		MaxTotalNotional:  200,
		MinSpreadIncrease: 0.20,
		MinTotalSpread:    0.60,
	})
	evaluator := exits.NewEvaluator(exits.EvaluatorConfig{
		TakeProfitTarget: 0.35,
		PositionTimeout:  90 * time.Minute,
	}, calc, clock)

	h.led = ledger.New(calc, clock, logger)
	h.exec = &fakeExecutor{led: h.led, clock: clock}
	h.feed = &stubFeed{}
	h.engine = New(
		Config{TickInterval: time.Second, InitialNotional: 100, ExecuteOrders: true},
		h.feed, calc, stability, admission, evaluator, h.exec, h.led,
		nil, nil, nil, logger,
	)
	return h
}

// profitableQuote yields aToB = 0.50, comfortably above the 0.15 threshold.
func profitableQuote() domain.Quote {
	return domain.Quote{
		BidA: 423.05, AskA: 423.10,
		BidB: 423.60, AskB: 423.70,
		MidA: 423.075, MidB: 423.65,
	}
}

func flatQuote() domain.Quote {
	return domain.Quote{
		BidA: 423.00, AskA: 423.10,
		BidB: 423.00, AskB: 423.10,
		MidA: 423.05, MidB: 423.05,
	}
}

func (h *harness) tick() {
	h.engine.Tick(context.Background())
}

func TestEngine_SkipsTickOnQuoteUnavailable(t *testing.T) {
	h := newHarness(t)
	h.feed.err = domain.ErrQuoteUnavailable

	h.tick()

	if len(h.exec.opens) != 0 || len(h.exec.closes) != 0 {
		t.Fatalf("tick executed despite unavailable quote")
	}
}

func TestEngine_StabilityGatesFirstEntry(t *testing.T) {
	h := newHarness(t)
	h.feed.q = profitableQuote()

	// Window of 2: the first observation cannot fill it.
	h.tick()
	if len(h.exec.opens) != 0 {
		t.Fatalf("opened on an unfilled stability window")
	}

	// Same spread again: window full and stable, entry proceeds.
	h.tick()
	if len(h.exec.opens) != 1 {
		t.Fatalf("opens = %d, want 1", len(h.exec.opens))
	}
	if got := h.engine.BestSpreadSeen(); got != 0.50 {
		t.Errorf("BestSpreadSeen = %v, want 0.50", got)
	}
}

func TestEngine_AddOnRequiresWiderSpread(t *testing.T) {
	h := newHarness(t)
	h.feed.q = profitableQuote()

	h.tick()
	h.tick() // first open at spread 0.50
	*h.now = h.now.Add(time.Minute)

	// Same spread: add-on denied, increase below 0.20.
	h.tick()
	if len(h.exec.opens) != 1 {
		t.Fatalf("opens = %d, want 1 (add-on must be denied)", len(h.exec.opens))
	}

	// Widen aToB to 0.75: increase 0.25 >= 0.20 and total 0.75 >= 0.60. Two
	// observations keep the window stable within 10%% tolerance.
	q := h.feed.q
	q.BidB = 423.85
	h.feed.q = q
	*h.now = h.now.Add(time.Minute)
	h.tick()
	*h.now = h.now.Add(time.Minute)
	h.tick()

	if len(h.exec.opens) != 2 {
		t.Fatalf("opens = %d, want 2 after widened spread", len(h.exec.opens))
	}
	if h.led.OpenCount() != 2 {
		t.Fatalf("ledger open count = %d, want 2", h.led.OpenCount())
	}
}

func TestEngine_TimeoutExitClosesAndResetsWatermark(t *testing.T) {
	h := newHarness(t)
	h.feed.q = profitableQuote()
	h.tick()
	h.tick() // open

	// Jump past the timeout with a flat market so no new entry appears.
	*h.now = h.now.Add(2 * time.Hour)
	h.feed.q = flatQuote()
	h.tick()

	if len(h.exec.closes) != 1 {
		t.Fatalf("closes = %d, want 1", len(h.exec.closes))
	}
	if h.led.OpenCount() != 0 {
		t.Fatalf("ledger open count = %d, want 0", h.led.OpenCount())
	}
	if got := h.engine.BestSpreadSeen(); got != 0 {
		t.Errorf("BestSpreadSeen = %v, want 0 after open set drained", got)
	}
	if stats := h.led.Statistics(); stats.TotalTrades != 1 {
		t.Errorf("closed trades = %d, want 1", stats.TotalTrades)
	}
}

func TestEngine_MonitorModeNeverExecutes(t *testing.T) {
	h := newHarness(t)
	h.engine.cfg.ExecuteOrders = false
	h.feed.q = profitableQuote()

	h.tick()
	h.tick()

	if len(h.exec.opens) != 0 {
		t.Fatalf("monitor mode executed %d opens", len(h.exec.opens))
	}
}

func TestEngine_HaltBlocksOpens(t *testing.T) {
	h := newHarness(t)
	h.exec.halted = true
	h.feed.q = profitableQuote()

	h.tick()
	h.tick()

	if len(h.exec.opens) != 0 {
		t.Fatalf("opened while executor halted")
	}
}

func TestEngine_UnprofitableDipDoesNotPolluteStabilityWindow(t *testing.T) {
	h := newHarness(t)

	h.feed.q = profitableQuote()
	h.tick() // first profitable sample
	h.feed.q = flatQuote()
	h.tick() // unprofitable, must not enter the window
	h.feed.q = profitableQuote()
	h.tick() // second profitable sample fills the window

	if len(h.exec.opens) != 1 {
		t.Fatalf("opens = %d, want 1 (unprofitable dip blocked the entry)", len(h.exec.opens))
	}
}

// flakySubmitter fills every leg except the scripted call numbers, which it
// rejects.
type flakySubmitter struct {
	rejectCalls map[int]bool
	calls       int
}

func (s *flakySubmitter) Submit(_ context.Context, leg domain.LegOrder) (domain.LegResult, error) {
	s.calls++
	if s.rejectCalls[s.calls] {
		return domain.LegResult{Outcome: domain.LegRejected, Reason: "order could not immediately match"}, nil
	}
	return domain.LegResult{Outcome: domain.LegFilled, FilledPrice: 423.0, FilledQty: leg.Quantity}, nil
}

func TestEngine_CloseRetriesAfterTransientLegRejection(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	calc := spread.NewCalculator(spread.CalculatorConfig{
		TakerFeeRate:      0.00003,
		MinNetProfit:      0.15,
		ReversalMinSpread: 10,
	})
	stability := spread.NewStabilityFilter(2, 0.1)
	admission := risk.NewAdmissionController(risk.AdmissionConfig{
		MaxPositions:      2,
		MaxTotalNotional:  200,
		MinSpreadIncrease: 0.20,
		MinTotalSpread:    0.60,
	})
	evaluator := exits.NewEvaluator(exits.EvaluatorConfig{
		TakeProfitTarget: 0.35,
		PositionTimeout:  90 * time.Minute,
	}, calc, clock)
	led := ledger.New(calc, clock, logger)

	// Venue A rejects its second call, which is the first close leg.
	subA := &flakySubmitter{rejectCalls: map[int]bool{2: true}}
	subB := &flakySubmitter{}
	coord := executor.NewCoordinator(
		executor.CoordinatorConfig{SizeStepA: 0.01, SizeStepB: 0.01},
		subA, subB, led, nil, clock, logger,
	)

	feed := &stubFeed{q: profitableQuote()}
	eng := New(
		Config{TickInterval: time.Second, InitialNotional: 100, ExecuteOrders: true},
		feed, calc, stability, admission, evaluator, coord, led,
		nil, nil, nil, logger,
	)

	ctx := context.Background()
	eng.Tick(ctx)
	eng.Tick(ctx) // window full, position opens
	if led.OpenCount() != 1 {
		t.Fatalf("open count after entry = %d, want 1", led.OpenCount())
	}

	// Past the timeout with a flat market: the exit fires but the venue A
	// close leg is rejected once.
	now = now.Add(2 * time.Hour)
	feed.q = flatQuote()
	eng.Tick(ctx)

	if led.OpenCount() != 1 {
		t.Fatalf("open count after rejected close = %d, want 1", led.OpenCount())
	}
	if st := led.OpenPositions()[0].State; st != domain.PositionStateOpen {
		t.Fatalf("state after rejected close = %q, want %q for retry", st, domain.PositionStateOpen)
	}

	// The next healthy tick must retry and close the position.
	eng.Tick(ctx)
	if led.OpenCount() != 0 {
		t.Fatalf("position still open after healthy tick, state = %q", led.OpenPositions()[0].State)
	}
	if got := led.Statistics().TotalTrades; got != 1 {
		t.Errorf("closed trades = %d, want 1", got)
	}
}

func TestEngine_NonSentinelFeedErrorAlsoSkips(t *testing.T) {
	h := newHarness(t)
	h.feed.err = errors.New("connection reset")

	h.tick()

	if len(h.exec.opens) != 0 {
		t.Fatalf("tick executed despite feed error")
	}
}
