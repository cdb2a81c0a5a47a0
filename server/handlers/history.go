package handlers

import (
	"net/http"

	"github.com/xero1425/xerobot/history"
)

// HistoryHandler handles requests for the mode period history.
type HistoryHandler struct {
	provider HistoryProvider
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(provider HistoryProvider) *HistoryHandler {
	return &HistoryHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	periods := h.provider.Periods()
	if periods == nil {
		periods = []history.Period{}
	}
	writeJSON(w, http.StatusOK, periods)
}
