package domain

import (
	"context"
	"time"
)

// Venue identifies one of the two execution venues quoting the instrument.
type Venue string

const (
	VenueA Venue = "A"
	VenueB Venue = "B"
)

// LegOrder is a single-venue order forming one leg of a two-leg operation.
// Quantity is in instrument units, already rounded to the coarser of the two
// venues' size steps so both legs can express the same amount.
type LegOrder struct {
	ClientID   string
	Venue      Venue
	IsBuy      bool
	Quantity   float64
	ReduceOnly bool
}

// LegOutcome classifies the result of one leg submission. Unknown covers
// ambiguous responses (timeouts, unparseable replies) and must always be
// treated as a failure; the coordinator never assumes success.
type LegOutcome int

const (
	LegUnknown LegOutcome = iota
	LegFilled
	LegRejected
)

// String implements fmt.Stringer for log output.
func (o LegOutcome) String() string {
	switch o {
	case LegFilled:
		return "filled"
	case LegRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// LegResult is the classified response to one leg submission.
type LegResult struct {
	Outcome     LegOutcome
	FilledPrice float64
	FilledQty   float64
	Reason      string // venue-supplied reason on rejection
}

// OrderSubmitter places one leg order on a venue. Implementations own their
// request timeouts; a timeout surfaces as LegUnknown, never as an error that
// implies the order did not reach the venue.
type OrderSubmitter interface {
	Submit(ctx context.Context, order LegOrder) (LegResult, error)
}

// QuoteFeed produces the per-tick venue-pair snapshot. A feed that cannot
// produce a complete snapshot returns ErrQuoteUnavailable and the tick is
// skipped entirely.
type QuoteFeed interface {
	Fetch(ctx context.Context) (Quote, error)
}

// Clock abstracts time.Now so timeout logic is testable with an injected
// clock.
type Clock func() time.Time
