package handler

import (
	"log/slog"
	"net/http"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// TradeHistory provides the in-process closed-trade snapshot and aggregate
// statistics. The ledger satisfies it.
type TradeHistory interface {
	ClosedTrades() []domain.ClosedTrade
	Statistics() domain.LedgerStats
}

// TradeHandler serves the closed-trade history and statistics endpoints.
// When a persistent store is configured it answers history queries from
// there, so trades closed before the last restart are included; otherwise it
// falls back to the in-process ledger.
type TradeHandler struct {
	store   domain.TradeStore // optional
	history TradeHistory
	logger  *slog.Logger
}

// NewTradeHandler creates a TradeHandler. store may be nil.
func NewTradeHandler(store domain.TradeStore, history TradeHistory, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		store:   store,
		history: history,
		logger:  logHandler(logger, "trades"),
	}
}

// ListTrades responds with recently closed trades, newest first.
// GET /api/trades?limit=N
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	var trades []domain.ClosedTrade
	if h.store != nil {
		var err error
		trades, err = h.store.ListRecent(r.Context(), limit)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "list trades from store",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "trade store unavailable")
			return
		}
	} else {
		trades = recentFromLedger(h.history.ClosedTrades(), limit)
	}
	if trades == nil {
		trades = []domain.ClosedTrade{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}

// GetStatistics responds with the aggregate statistics over closed trades.
// GET /api/statistics
func (h *TradeHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.Statistics())
}

// recentFromLedger returns the newest trades from the append-ordered ledger
// snapshot, newest first.
func recentFromLedger(all []domain.ClosedTrade, limit int) []domain.ClosedTrade {
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]domain.ClosedTrade, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	return out
}
