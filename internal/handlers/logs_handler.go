package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/bridge"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// LogsHandler serves the worker log tail endpoint.
type LogsHandler struct {
	bridge *bridge.Bridge
	logger arbor.ILogger
}

// NewLogsHandler creates a new LogsHandler
func NewLogsHandler(b *bridge.Bridge, logger arbor.ILogger) *LogsHandler {
	return &LogsHandler{
		bridge: b,
		logger: logger,
	}
}

// TailLogHandler handles GET /api/logs/tail?lines=N
func (h *LogsHandler) TailLogHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	args := bridge.TailLogArgs{}
	if lines := r.URL.Query().Get("lines"); lines != "" {
		if n, err := strconv.Atoi(lines); err == nil {
			args.Lines = n
		}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to encode arguments")
		return
	}

	cmd := models.Command{Name: bridge.CmdTailLog, Args: raw}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}
