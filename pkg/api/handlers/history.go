package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/blackcoderx/postbox/pkg/history"
)

// HistoryReader lists recent runs.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// HistoryHandler serves the run log.
type HistoryHandler struct {
	BaseHandler
	history HistoryReader
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(reader HistoryReader) *HistoryHandler {
	return &HistoryHandler{history: reader}
}

// Recent handles GET /history?limit=
func (h *HistoryHandler) Recent(w http.ResponseWriter, req *http.Request) {
	limit := history.DefaultLimit
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(req.Context(), limit)
	if err != nil {
		h.sendFailure(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, entries)
}
