package handlers

import (
	"net/http"

	"gopkg.in/yaml.v3"
)

// ConfigHandler serves the running configuration as YAML. With
// ?view=settings it serves the robot settings instead, flattened to the
// dotted keys subsystems read.
type ConfigHandler struct {
	provider ConfigProvider
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(provider ConfigProvider) *ConfigHandler {
	return &ConfigHandler{provider: provider}
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body any
	switch view := r.URL.Query().Get("view"); view {
	case "", "config":
		body = h.provider.Config().Redacted()
	case "settings":
		st := h.provider.Settings()
		if st == nil {
			writeError(w, http.StatusNotFound, "robot is running on built-in settings")
			return
		}
		body = st
	default:
		writeError(w, http.StatusBadRequest, "unknown view "+view+", want config or settings")
		return
	}

	out, err := yaml.Marshal(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding response: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
