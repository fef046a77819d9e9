package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// OpportunityHandler serves the latest spread evaluation.
type OpportunityHandler struct {
	cache  domain.OpportunityCache
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler backed by the given
// cache.
func NewOpportunityHandler(cache domain.OpportunityCache, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		cache:  cache,
		logger: logHandler(logger, "opportunity"),
	}
}

// GetOpportunity responds with the most recent opportunity evaluation, or
// 404 when no tick has completed yet.
// GET /api/opportunity
func (h *OpportunityHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := h.cache.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no opportunity observed yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "get opportunity",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "opportunity cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, opp)
}
