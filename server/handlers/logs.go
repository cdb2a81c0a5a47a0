package handlers

import (
	"net/http"

	"github.com/xero1425/xerobot/logging"
)

// LogsHandler returns captured log entries, for one subsystem when the
// subsystem query parameter is set and for all of them otherwise.
type LogsHandler struct {
	provider LogProvider
}

// NewLogsHandler creates a new LogsHandler.
func NewLogsHandler(provider LogProvider) *LogsHandler {
	return &LogsHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusNotFound, "log capture is disabled")
		return
	}

	name := r.URL.Query().Get("subsystem")
	if name == "" {
		writeJSON(w, http.StatusOK, h.provider.GetAllLogs())
		return
	}

	logs := h.provider.GetLogs(name)
	if logs == nil {
		logs = []logging.LogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}
