package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
)

type captureWriter struct {
	puts []capturedPut
}

type capturedPut struct {
	path        string
	contentType string
	data        []byte
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts = append(w.puts, capturedPut{path: path, contentType: contentType, data: b})
	return nil
}

type staticSource struct {
	trades []domain.ClosedTrade
}

func (s *staticSource) ClosedTrades() []domain.ClosedTrade {
	return s.trades
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTrade() domain.ClosedTrade {
	opened := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.ClosedTrade{
		PositionID:     "A_TO_B_20260301120000",
		Direction:      domain.DirectionAToB,
		EntrySpread:    0.5,
		EntryQuote:     domain.Quote{BidA: 423.10, AskA: 423.20, BidB: 423.60, AskB: 423.70},
		ExitQuote:      domain.Quote{BidA: 423.40, AskA: 423.50, BidB: 423.45, AskB: 423.55},
		NotionalSize:   100,
		OpenedAt:       opened,
		ClosedAt:       opened.Add(45 * time.Minute),
		HoldingSeconds: 2700,
		ExitMethod:     domain.ExitTakeProfit,
		RealizedPnL:    0.41,
	}
}

func TestUploadWritesCSVSnapshot(t *testing.T) {
	writer := &captureWriter{}
	source := &staticSource{trades: []domain.ClosedTrade{sampleTrade()}}
	a := New(writer, source, "spreadbot", time.Minute, nil, testLogger())

	if err := a.Upload(context.Background()); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(writer.puts) != 1 {
		t.Fatalf("puts = %d, want 1", len(writer.puts))
	}

	put := writer.puts[0]
	if put.path != "spreadbot/closed_trades.csv" {
		t.Errorf("path = %q", put.path)
	}
	if put.contentType != "text/csv" {
		t.Errorf("content type = %q", put.contentType)
	}

	records, err := csv.NewReader(bytes.NewReader(put.data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(records))
	}
	if records[0][0] != "closed_at" || records[0][len(records[0])-1] != "realized_pnl" {
		t.Errorf("unexpected header: %v", records[0])
	}

	row := records[1]
	if row[1] != "A_TO_B_20260301120000" {
		t.Errorf("position_id = %q", row[1])
	}
	if row[2] != "A_TO_B" {
		t.Errorf("direction = %q", row[2])
	}
	if row[4] != "0.5000" {
		t.Errorf("entry_spread = %q", row[4])
	}
	if row[13] != "TAKE_PROFIT" {
		t.Errorf("exit_method = %q", row[13])
	}
	if row[14] != "2700" {
		t.Errorf("holding_seconds = %q", row[14])
	}
	if row[15] != "0.4100" {
		t.Errorf("realized_pnl = %q", row[15])
	}
}

func TestUploadSkipsWhenNothingNew(t *testing.T) {
	writer := &captureWriter{}
	source := &staticSource{}
	a := New(writer, source, "", time.Minute, nil, testLogger())

	if err := a.Upload(context.Background()); err != nil {
		t.Fatalf("Upload empty: %v", err)
	}
	if len(writer.puts) != 0 {
		t.Fatalf("expected no upload for empty history, got %d", len(writer.puts))
	}

	source.trades = []domain.ClosedTrade{sampleTrade()}
	if err := a.Upload(context.Background()); err != nil {
		t.Fatalf("Upload first: %v", err)
	}
	if err := a.Upload(context.Background()); err != nil {
		t.Fatalf("Upload repeat: %v", err)
	}
	if len(writer.puts) != 1 {
		t.Fatalf("puts = %d, want 1 (unchanged history skipped)", len(writer.puts))
	}

	if writer.puts[0].path != "closed_trades.csv" {
		t.Errorf("empty prefix path = %q", writer.puts[0].path)
	}
}
