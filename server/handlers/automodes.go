package handlers

import (
	"net/http"

	"github.com/xero1425/xerobot/auto"
)

// AutoModesResponse is the JSON response for /api/automodes.
type AutoModesResponse struct {
	Modes    []auto.ModeInfo `json:"modes"`
	Selected int             `json:"selected"`
}

// AutoModesHandler lists the autonomous routines.
type AutoModesHandler struct {
	provider AutoModeProvider
}

// NewAutoModesHandler creates a new AutoModesHandler.
func NewAutoModesHandler(provider AutoModeProvider) *AutoModesHandler {
	return &AutoModesHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *AutoModesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	modes := h.provider.AutoModes()
	if modes == nil {
		modes = []auto.ModeInfo{}
	}
	writeJSON(w, http.StatusOK, AutoModesResponse{
		Modes:    modes,
		Selected: h.provider.SelectedAutoMode(),
	})
}
