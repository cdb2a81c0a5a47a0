package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/xero1425/xerobot/server/types"
)

// ReloadHandler rereads the config file and the robot settings it names.
// Subsystems see new settings on their next read; the control loop is not
// restarted.
type ReloadHandler struct {
	logger   *slog.Logger
	reloader Reloader
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(logger *slog.Logger, reloader Reloader) *ReloadHandler {
	return &ReloadHandler{
		logger:   logger,
		reloader: reloader,
	}
}

// ServeHTTP responds with the ReloadResult, or a 500 naming the file that
// failed.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.reloader.Reload()
	if err != nil {
		resp := ErrorResponse{Error: err.Error()}
		var rerr *types.ReloadError
		if errors.As(err, &rerr) {
			resp.File = rerr.File
		}
		h.logger.Error("reload failed", "file", resp.File, "error", err)
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	h.logger.Info("reload requested",
		"config_path", res.ConfigPath,
		"settings_path", res.SettingsPath,
	)
	writeJSON(w, http.StatusOK, res)
}
