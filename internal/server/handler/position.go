package handler

import (
	"log/slog"
	"net/http"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// PositionBook provides the open-position snapshot. The ledger satisfies it.
type PositionBook interface {
	OpenPositions() []domain.Position
}

// PositionHandler serves the open-position endpoints.
type PositionHandler struct {
	book   PositionBook
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler backed by the given book.
func NewPositionHandler(book PositionBook, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		book:   book,
		logger: logHandler(logger, "positions"),
	}
}

// ListPositions responds with all currently open positions.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.book.OpenPositions()
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"count":     len(positions),
	})
}
