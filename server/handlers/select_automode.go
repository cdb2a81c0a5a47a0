package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/xero1425/xerobot/auto"
)

// SelectAutoModeRequest defines the request body for POST /api/automodes/select.
type SelectAutoModeRequest struct {
	Index *int `json:"index"`
}

// SelectAutoModeHandler handles requests to change the autonomous routine.
// The loop picks the new selection up on its next disabled tick.
type SelectAutoModeHandler struct {
	selector AutoModeSelector
}

// NewSelectAutoModeHandler creates a new SelectAutoModeHandler.
func NewSelectAutoModeHandler(selector AutoModeSelector) *SelectAutoModeHandler {
	return &SelectAutoModeHandler{
		selector: selector,
	}
}

// ServeHTTP implements http.Handler.
func (h *SelectAutoModeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SelectAutoModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}

	err := h.selector.SelectAutoMode(*req.Index)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, auto.ErrModeUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auto.ErrUnknownMode), errors.Is(err, auto.ErrNoTestMode):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
