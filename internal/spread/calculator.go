// Package spread provides the pure math over venue-pair quotes: executable
// spreads, taker fees, net profit, direction selection, and position
// revaluation. Nothing in this package performs I/O or holds mutable state
// beyond the stability filter's sample window.
package spread

import (
	"github.com/andrewqian/spreadbot/internal/domain"
)

// CalculatorConfig holds the fee and threshold parameters for spread math.
type CalculatorConfig struct {
	TakerFeeRate      float64 // per-leg taker fee rate, e.g. 0.00003
	MinNetProfit      float64 // minimum net profit to mark a direction profitable
	ReversalMinSpread float64 // opposite-direction spread that counts as a reversal
}

// Calculator turns quote snapshots into executable spreads, fee estimates,
// and per-direction net profit. All methods are total functions over finite
// inputs; bid<ask validation is the quote feed's responsibility.
type Calculator struct {
	cfg CalculatorConfig
}

// NewCalculator creates a Calculator with the given fee configuration.
func NewCalculator(cfg CalculatorConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// ExecutableSpreads returns the price gap obtainable after crossing the book
// on both venues, for both directions:
//
//	aToB = bidB - askA  (buy on A, sell on B)
//	bToA = bidA - askB  (buy on B, sell on A)
func (c *Calculator) ExecutableSpreads(q domain.Quote) (aToB, bToA float64) {
	return q.BidB - q.AskA, q.BidA - q.AskB
}

// OpenFee estimates the cost of opening: two taker legs at avgPrice.
func (c *Calculator) OpenFee(avgPrice float64) float64 {
	return avgPrice * c.cfg.TakerFeeRate * 2
}

// NetProfit is the executable spread net of the given fee.
func (c *Calculator) NetProfit(spread, fee float64) float64 {
	return spread - fee
}

// BestDirection evaluates both directions against the minimum-profit
// threshold and returns the resulting Opportunity. When both directions
// clear the threshold the larger net profit wins; when neither clears it the
// larger raw spread is reported with IsProfitable=false for monitoring only.
func (c *Calculator) BestDirection(q domain.Quote) domain.Opportunity {
	avgPrice := q.AvgMid()
	openFee := c.OpenFee(avgPrice)

	aToB, bToA := c.ExecutableSpreads(q)
	profitAToB := c.NetProfit(aToB, openFee)
	profitBToA := c.NetProfit(bToA, openFee)

	opp := domain.Opportunity{
		OpenFee:    openFee,
		DetectedAt: q.ObservedAt,
		Detail: domain.DirectionDetail{
			SpreadAToB:    aToB,
			SpreadBToA:    bToA,
			NetProfitAToB: profitAToB,
			NetProfitBToA: profitBToA,
			AvgPrice:      avgPrice,
		},
	}

	okAToB := profitAToB > c.cfg.MinNetProfit
	okBToA := profitBToA > c.cfg.MinNetProfit

	switch {
	case okAToB && okBToA:
		if profitAToB >= profitBToA {
			opp.Direction, opp.Spread, opp.NetProfit = domain.DirectionAToB, aToB, profitAToB
		} else {
			opp.Direction, opp.Spread, opp.NetProfit = domain.DirectionBToA, bToA, profitBToA
		}
		opp.IsProfitable = true
	case okAToB:
		opp.Direction, opp.Spread, opp.NetProfit = domain.DirectionAToB, aToB, profitAToB
		opp.IsProfitable = true
	case okBToA:
		opp.Direction, opp.Spread, opp.NetProfit = domain.DirectionBToA, bToA, profitBToA
		opp.IsProfitable = true
	default:
		// Neither clears the threshold; report the larger raw spread.
		if aToB >= bToA {
			opp.Direction, opp.Spread, opp.NetProfit = domain.DirectionAToB, aToB, profitAToB
		} else {
			opp.Direction, opp.Spread, opp.NetProfit = domain.DirectionBToA, bToA, profitBToA
		}
	}

	return opp
}

// ReversalSpread returns the opposite direction's executable spread for an
// open position, i.e. what a reversal-close would realize right now.
func (c *Calculator) ReversalSpread(current domain.Direction, q domain.Quote) float64 {
	aToB, bToA := c.ExecutableSpreads(q)
	if current == domain.DirectionAToB {
		return bToA
	}
	return aToB
}

// HasReversal reports whether the opposite direction's spread exceeds the
// configured reversal threshold, along with the spread itself.
func (c *Calculator) HasReversal(current domain.Direction, q domain.Quote) (bool, float64) {
	rev := c.ReversalSpread(current, q)
	return rev > c.cfg.ReversalMinSpread, rev
}

// UnrealizedPnL revalues an open position against the current quote. The two
// branches account differently on purpose:
//
//   - a reversal is available: the close funds itself like a fresh open, so
//     pnl = reversalSpread - OpenFee(mean of the four current prices);
//   - no reversal: mark-to-market against the entry spread minus a
//     conservative two-taker-leg close fee.
func (c *Calculator) UnrealizedPnL(pos domain.Position, q domain.Quote) float64 {
	if ok, rev := c.HasReversal(pos.Direction, q); ok {
		return rev - c.OpenFee(q.AvgBook())
	}

	aToB, bToA := c.ExecutableSpreads(q)
	current := aToB
	if pos.Direction == domain.DirectionBToA {
		current = bToA
	}
	closeFee := q.AvgBook() * c.cfg.TakerFeeRate * 2
	return (current - pos.EntrySpread) - closeFee
}
