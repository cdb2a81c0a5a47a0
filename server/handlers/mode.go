package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xero1425/xerobot/subsystem"
)

// ModeRequest defines the request body for POST /api/mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ModeHandler asks the loop to switch robot mode.
type ModeHandler struct {
	requester ModeRequester
}

// NewModeHandler creates a new ModeHandler.
func NewModeHandler(requester ModeRequester) *ModeHandler {
	return &ModeHandler{
		requester: requester,
	}
}

// ServeHTTP implements http.Handler.
func (h *ModeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	mode, ok := subsystem.ParseMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}

	h.requester.RequestMode(mode)
	w.WriteHeader(http.StatusAccepted)
}
