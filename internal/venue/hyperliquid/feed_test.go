package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andrewqian/spreadbot/internal/domain"
)

func bookJSON(coin string, bid, ask float64, ts int64) l2Book {
	return l2Book{
		Coin: coin,
		Time: ts,
		Levels: [2][]l2Level{
			{{Px: formatPx(bid), Sz: "10", N: 3}},
			{{Px: formatPx(ask), Sz: "8", N: 2}},
		},
	}
}

func formatPx(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func newInfoServer(t *testing.T, books map[string]l2Book) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type != "l2Book" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		book, ok := books[req.Coin]
		if !ok {
			http.Error(w, "unknown coin", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(book)
	}))
}

func TestClient_L2Book(t *testing.T) {
	srv := newInfoServer(t, map[string]l2Book{
		"flx:TSLA": bookJSON("flx:TSLA", 423.10, 423.20, 1756200000000),
	})
	defer srv.Close()

	top, err := NewClient(srv.URL).L2Book(context.Background(), "flx:TSLA")
	if err != nil {
		t.Fatalf("L2Book: %v", err)
	}
	if top.Bid != 423.10 || top.Ask != 423.20 {
		t.Fatalf("top = %+v", top)
	}
	if top.Mid() != (423.10+423.20)/2 {
		t.Errorf("Mid = %v", top.Mid())
	}
}

func TestL2Book_RejectsDegenerateBooks(t *testing.T) {
	tests := []struct {
		name string
		book l2Book
	}{
		{"empty bids", l2Book{Coin: "x", Levels: [2][]l2Level{{}, {{Px: "1", Sz: "1"}}}}},
		{"empty asks", l2Book{Coin: "x", Levels: [2][]l2Level{{{Px: "1", Sz: "1"}}, {}}}},
		{"crossed", bookJSON("x", 424.0, 423.0, 0)},
		{"bad px", l2Book{Coin: "x", Levels: [2][]l2Level{{{Px: "abc", Sz: "1"}}, {{Px: "1", Sz: "1"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.book.top(); err == nil {
				t.Fatal("top() accepted a degenerate book")
			}
		})
	}
}

func TestFeed_CombinesBothSides(t *testing.T) {
	srv := newInfoServer(t, map[string]l2Book{
		"flx:TSLA": bookJSON("flx:TSLA", 423.10, 423.20, 1756200000000),
		"xyz:TSLA": bookJSON("xyz:TSLA", 423.55, 423.65, 1756200000000),
	})
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := NewFeed("flx:TSLA", "xyz:TSLA", nil, NewClient(srv.URL), func() time.Time { return now }, logger)

	q, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if q.BidA != 423.10 || q.AskA != 423.20 || q.BidB != 423.55 || q.AskB != 423.65 {
		t.Fatalf("quote = %+v", q)
	}
	if q.MidA != (423.10+423.20)/2 || q.MidB != (423.55+423.65)/2 {
		t.Errorf("mids = %v / %v", q.MidA, q.MidB)
	}
	if !q.ObservedAt.Equal(now) {
		t.Errorf("ObservedAt = %v, want %v", q.ObservedAt, now)
	}
}

func TestFeed_MissingSideIsUnavailable(t *testing.T) {
	srv := newInfoServer(t, map[string]l2Book{
		"flx:TSLA": bookJSON("flx:TSLA", 423.10, 423.20, 1756200000000),
	})
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	feed := NewFeed("flx:TSLA", "xyz:TSLA", nil, NewClient(srv.URL), nil, logger)

	_, err := feed.Fetch(context.Background())
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("error = %v, want ErrQuoteUnavailable", err)
	}
}
