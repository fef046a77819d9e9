package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// EngineStatus exposes the engine fields surfaced by the status endpoint.
type EngineStatus interface {
	BestSpreadSeen() float64
}

// HaltStatus reports whether automated opens are halted.
type HaltStatus interface {
	Halted() bool
}

// BookStatus exposes the ledger aggregates surfaced by the status endpoint.
type BookStatus interface {
	OpenCount() int
	TotalNotional() float64
}

// StatusHandler serves the runtime status snapshot.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	engine    EngineStatus
	halt      HaltStatus
	book      BookStatus
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. engine and halt may be nil when
// the corresponding component is not running (e.g. monitor mode without an
// executor).
func NewStatusHandler(mode string, startedAt time.Time, engine EngineStatus, halt HaltStatus, book BookStatus, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		engine:    engine,
		halt:      halt,
		book:      book,
		logger:    logHandler(logger, "status"),
	}
}

// GetStatus responds with the current runtime snapshot.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":           h.mode,
		"started_at":     h.startedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.engine != nil {
		resp["best_spread_seen"] = h.engine.BestSpreadSeen()
	}
	if h.halt != nil {
		resp["trading_halted"] = h.halt.Halted()
	}
	if h.book != nil {
		resp["open_positions"] = h.book.OpenCount()
		resp["total_notional"] = h.book.TotalNotional()
	}
	writeJSON(w, http.StatusOK, resp)
}
