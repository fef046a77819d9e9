package domain

import "time"

// Direction identifies which way a cross-venue position is opened:
// DirectionAToB buys on venue A and sells on venue B, DirectionBToA the
// opposite. A position keeps exactly one direction for its whole life.
type Direction string

const (
	DirectionAToB Direction = "A_TO_B"
	DirectionBToA Direction = "B_TO_A"
)

// Opposite returns the reverse trading direction.
func (d Direction) Opposite() Direction {
	if d == DirectionAToB {
		return DirectionBToA
	}
	return DirectionAToB
}

// Quote is an immutable snapshot of the best bid/ask on both venues for the
// monitored instrument, produced once per tick by the quote feed.
type Quote struct {
	BidA       float64   `json:"bid_a"`
	AskA       float64   `json:"ask_a"`
	BidB       float64   `json:"bid_b"`
	AskB       float64   `json:"ask_b"`
	MidA       float64   `json:"mid_a"`
	MidB       float64   `json:"mid_b"`
	ObservedAt time.Time `json:"observed_at"`
}

// AvgMid returns the mean of the two venue mid prices. Used as the reference
// price for fee estimation on opens.
func (q Quote) AvgMid() float64 {
	return (q.MidA + q.MidB) / 2
}

// AvgBook returns the mean of all four book prices. Used as the reference
// price for fee estimation on closes, matching the revaluation model.
func (q Quote) AvgBook() float64 {
	return (q.BidA + q.AskA + q.BidB + q.AskB) / 4
}
