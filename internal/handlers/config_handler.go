package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/common"
)

// ConfigHandler exposes the client-relevant configuration: the UI needs
// the suggested poll interval and tail defaults, not the whole file.
type ConfigHandler struct {
	config *common.Config
	logger arbor.ILogger
}

// NewConfigHandler creates a new ConfigHandler
func NewConfigHandler(config *common.Config, logger arbor.ILogger) *ConfigHandler {
	return &ConfigHandler{
		config: config,
		logger: logger,
	}
}

// GetConfigHandler handles GET /api/config
func (h *ConfigHandler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment": h.config.Environment,
		"progress": map[string]interface{}{
			"poll_interval": h.config.Progress.PollInterval,
		},
		"logs": map[string]interface{}{
			"default_lines": h.config.Logs.DefaultLines,
			"max_lines":     h.config.Logs.MaxLines,
		},
		"scheduler": map[string]interface{}{
			"enabled":  h.config.Scheduler.Enabled,
			"schedule": h.config.Scheduler.Schedule,
		},
	})
}
