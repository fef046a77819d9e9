package hyperliquid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// defaultStaleness bounds how old a cached WebSocket top may be before the
// feed falls back to a REST snapshot.
const defaultStaleness = 5 * time.Second

// Feed assembles a venue-pair Quote from the order books of the two coins.
// It prefers fresh WebSocket tops and falls back to REST snapshots; if
// either side cannot be produced the tick is reported unavailable.
type Feed struct {
	coinA, coinB string
	ws           *WSClient // optional
	rest         *Client
	staleness    time.Duration
	clock        domain.Clock
	logger       *slog.Logger
}

// NewFeed creates a Feed for the coin pair. ws may be nil to run REST-only;
// a nil clock defaults to time.Now.
func NewFeed(coinA, coinB string, ws *WSClient, rest *Client, clock domain.Clock, logger *slog.Logger) *Feed {
	if clock == nil {
		clock = time.Now
	}
	return &Feed{
		coinA:     coinA,
		coinB:     coinB,
		ws:        ws,
		rest:      rest,
		staleness: defaultStaleness,
		clock:     clock,
		logger:    logger.With(slog.String("component", "quote_feed")),
	}
}

// Fetch implements domain.QuoteFeed. Any failure to produce both tops maps
// to ErrQuoteUnavailable so the engine skips the tick.
func (f *Feed) Fetch(ctx context.Context) (domain.Quote, error) {
	topA, err := f.top(ctx, f.coinA)
	if err != nil {
		f.logger.Debug("side A unavailable", slog.String("coin", f.coinA), slog.String("error", err.Error()))
		return domain.Quote{}, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, f.coinA, err)
	}
	topB, err := f.top(ctx, f.coinB)
	if err != nil {
		f.logger.Debug("side B unavailable", slog.String("coin", f.coinB), slog.String("error", err.Error()))
		return domain.Quote{}, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, f.coinB, err)
	}

	return domain.Quote{
		BidA:       topA.Bid,
		AskA:       topA.Ask,
		BidB:       topB.Bid,
		AskB:       topB.Ask,
		MidA:       topA.Mid(),
		MidB:       topB.Mid(),
		ObservedAt: f.clock().UTC(),
	}, nil
}

// top returns a fresh top of book for coin, WebSocket cache first.
func (f *Feed) top(ctx context.Context, coin string) (BookTop, error) {
	if f.ws != nil {
		if top, ok := f.ws.Top(coin); ok && f.clock().Sub(top.UpdatedAt) <= f.staleness {
			return top, nil
		}
	}
	return f.rest.L2Book(ctx, coin)
}
