// Package archive periodically snapshots the closed-trade history to object
// storage as CSV, so the trade record survives process restarts and can be
// analyzed outside the bot.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// BlobWriter is the narrow upload surface the archiver needs. The S3 writer
// satisfies it.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// TradeSource provides the closed trades to snapshot. The ledger satisfies it.
type TradeSource interface {
	ClosedTrades() []domain.ClosedTrade
}

// csvHeader mirrors the historical trade-log layout so downstream tooling
// keeps working.
var csvHeader = []string{
	"closed_at",
	"position_id",
	"direction",
	"notional_size",
	"entry_spread",
	"entry_bid_a",
	"entry_ask_a",
	"entry_bid_b",
	"entry_ask_b",
	"exit_bid_a",
	"exit_ask_a",
	"exit_bid_b",
	"exit_ask_b",
	"exit_method",
	"holding_seconds",
	"realized_pnl",
}

// Archiver uploads a full CSV snapshot of the closed-trade history on a fixed
// interval. Each upload overwrites the previous object, so the stored file is
// always the complete history.
type Archiver struct {
	writer   BlobWriter
	trades   TradeSource
	prefix   string
	interval time.Duration
	clock    domain.Clock
	logger   *slog.Logger

	lastCount int
}

// New creates an Archiver. prefix is the object key prefix, e.g. "spreadbot".
func New(writer BlobWriter, trades TradeSource, prefix string, interval time.Duration, clock domain.Clock, logger *slog.Logger) *Archiver {
	if clock == nil {
		clock = time.Now
	}
	return &Archiver{
		writer:   writer,
		trades:   trades,
		prefix:   strings.TrimSuffix(prefix, "/"),
		interval: interval,
		clock:    clock,
		logger:   logger.With(slog.String("component", "archive")),
	}
}

// Run uploads snapshots on the configured interval until the context is
// cancelled, then makes one final upload so no trade is lost on shutdown.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final snapshot with a fresh context; the loop context is gone.
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.Upload(flushCtx); err != nil {
				a.logger.Error("final trade snapshot failed",
					slog.String("error", err.Error()),
				)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := a.Upload(ctx); err != nil {
				a.logger.Error("trade snapshot failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Upload writes the current closed-trade history to the object store. It is a
// no-op when no trades have closed since the last upload.
func (a *Archiver) Upload(ctx context.Context) error {
	trades := a.trades.ClosedTrades()
	if len(trades) == 0 || len(trades) == a.lastCount {
		return nil
	}

	buf, err := encodeCSV(trades)
	if err != nil {
		return fmt.Errorf("archive: encode trades: %w", err)
	}

	key := a.objectKey()
	if err := a.writer.Put(ctx, key, bytes.NewReader(buf), "text/csv"); err != nil {
		return fmt.Errorf("archive: upload %s: %w", key, err)
	}

	a.lastCount = len(trades)
	a.logger.Info("uploaded trade snapshot",
		slog.String("key", key),
		slog.Int("trades", len(trades)),
	)
	return nil
}

func (a *Archiver) objectKey() string {
	if a.prefix == "" {
		return "closed_trades.csv"
	}
	return a.prefix + "/closed_trades.csv"
}

func encodeCSV(trades []domain.ClosedTrade) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, t := range trades {
		row := []string{
			t.ClosedAt.UTC().Format("2006-01-02 15:04:05"),
			t.PositionID,
			string(t.Direction),
			formatFloat(t.NotionalSize, 2),
			formatFloat(t.EntrySpread, 4),
			formatFloat(t.EntryQuote.BidA, 2),
			formatFloat(t.EntryQuote.AskA, 2),
			formatFloat(t.EntryQuote.BidB, 2),
			formatFloat(t.EntryQuote.AskB, 2),
			formatFloat(t.ExitQuote.BidA, 2),
			formatFloat(t.ExitQuote.AskA, 2),
			formatFloat(t.ExitQuote.BidB, 2),
			formatFloat(t.ExitQuote.AskB, 2),
			string(t.ExitMethod),
			formatFloat(t.HoldingSeconds, 0),
			formatFloat(t.RealizedPnL, 4),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
