package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/bridge"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// ProgressHandler serves the progress poll endpoint. The UI polls this
// independently of the job lifecycle routes; a stale or absent snapshot
// right after start-job is expected.
type ProgressHandler struct {
	bridge *bridge.Bridge
	logger arbor.ILogger
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(b *bridge.Bridge, logger arbor.ILogger) *ProgressHandler {
	return &ProgressHandler{
		bridge: b,
		logger: logger,
	}
}

// GetProgressHandler handles GET /api/progress
func (h *ProgressHandler) GetProgressHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	cmd := models.Command{Name: bridge.CmdGetProgress}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}
