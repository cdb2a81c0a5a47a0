package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports whether the control loop is ticking.
type HealthHandler struct {
	provider SnapshotProvider
	maxAge   time.Duration
}

// NewHealthHandler creates a HealthHandler that fails when the latest
// snapshot is older than maxAge.
func NewHealthHandler(provider SnapshotProvider, maxAge time.Duration) *HealthHandler {
	return &HealthHandler{
		provider: provider,
		maxAge:   maxAge,
	}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.provider.Snapshot()
	switch {
	case !ok:
		writeText(w, http.StatusServiceUnavailable, "starting")
	case time.Since(snap.UpdatedAt) > h.maxAge:
		writeText(w, http.StatusServiceUnavailable, "stalled")
	default:
		writeText(w, http.StatusOK, "ok")
	}
}
