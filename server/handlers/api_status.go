package handlers

import (
	"net/http"
	"time"

	"github.com/xero1425/xerobot/robot"
	"github.com/xero1425/xerobot/server/types"
)

// NextRunResponse is the JSON response for the next diagnostics run.
type NextRunResponse struct {
	Scheduled bool       `json:"scheduled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Server  types.ServerProperties `json:"server"`
	Robot   robot.Snapshot         `json:"robot"`
	NextRun NextRunResponse        `json:"next_diagnostics"`
}

// APIStatusProvider aggregates all the providers needed for the status endpoint.
type APIStatusProvider interface {
	SnapshotProvider
	Properties() types.ServerProperties
	NextRun() *time.Time
}

// APIStatusHandler handles requests for the consolidated status endpoint.
type APIStatusHandler struct {
	provider APIStatusProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(provider APIStatusProvider) *APIStatusHandler {
	return &APIStatusHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.provider.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "control loop has not ticked yet")
		return
	}

	nextRun := h.provider.NextRun()
	resp := APIStatusResponse{
		Server: h.provider.Properties(),
		Robot:  snap,
		NextRun: NextRunResponse{
			Scheduled: nextRun != nil,
			NextRun:   nextRun,
		},
	}

	writeJSON(w, http.StatusOK, resp)
}
