// Package paper implements dry-run execution: legs fill instantly at the
// current book price of their venue side, without touching the exchange.
package paper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// Submitter fills orders against the live quote for one venue side. Buys
// fill at the ask, sells at the bid, which keeps paper fills as pessimistic
// as real taker executions.
type Submitter struct {
	venue  domain.Venue
	feed   domain.QuoteFeed
	logger *slog.Logger
}

// NewSubmitter creates a paper submitter for one venue side.
func NewSubmitter(venue domain.Venue, feed domain.QuoteFeed, logger *slog.Logger) *Submitter {
	return &Submitter{
		venue:  venue,
		feed:   feed,
		logger: logger.With(slog.String("component", "paper"), slog.String("venue", string(venue))),
	}
}

// Submit implements domain.OrderSubmitter.
func (s *Submitter) Submit(ctx context.Context, leg domain.LegOrder) (domain.LegResult, error) {
	q, err := s.feed.Fetch(ctx)
	if err != nil {
		return domain.LegResult{Outcome: domain.LegUnknown, Reason: err.Error()},
			fmt.Errorf("paper: no quote to fill against: %w", err)
	}

	var price float64
	switch {
	case s.venue == domain.VenueA && leg.IsBuy:
		price = q.AskA
	case s.venue == domain.VenueA:
		price = q.BidA
	case leg.IsBuy:
		price = q.AskB
	default:
		price = q.BidB
	}

	s.logger.Info("paper fill",
		slog.String("client_id", leg.ClientID),
		slog.Bool("is_buy", leg.IsBuy),
		slog.Float64("quantity", leg.Quantity),
		slog.Float64("price", price),
		slog.Bool("reduce_only", leg.ReduceOnly),
	)
	return domain.LegResult{
		Outcome:     domain.LegFilled,
		FilledPrice: price,
		FilledQty:   leg.Quantity,
	}, nil
}
