package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/bridge"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// JobHandler exposes the job lifecycle as convenience REST routes. Every
// route goes through the bridge so validation and panic containment apply
// uniformly.
type JobHandler struct {
	bridge *bridge.Bridge
	logger arbor.ILogger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(b *bridge.Bridge, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		bridge: b,
		logger: logger,
	}
}

// StartJobHandler handles POST /api/jobs/start. The optional request body
// is passed through as the start-job command arguments.
func (h *JobHandler) StartJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	cmd := models.Command{Name: bridge.CmdStartJob, Args: body}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}

// CancelJobHandler handles POST /api/jobs/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	cmd := models.Command{Name: bridge.CmdCancelJob}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}

// StatusHandler handles GET /api/jobs/status
func (h *JobHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	cmd := models.Command{Name: bridge.CmdJobStatus}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}

// ListRunsHandler handles GET /api/jobs/runs with optional status, limit
// and offset query parameters.
func (h *JobHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	args := bridge.ListRunsArgs{
		Status: r.URL.Query().Get("status"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			args.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			args.Offset = n
		}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode arguments: %v", err))
		return
	}

	cmd := models.Command{Name: bridge.CmdListRuns, Args: raw}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}
