package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/bridge"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// CommandHandler exposes the generic bridge surface: a single POST
// endpoint taking {command, args} and returning the result envelope.
type CommandHandler struct {
	bridge *bridge.Bridge
	logger arbor.ILogger
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(b *bridge.Bridge, logger arbor.ILogger) *CommandHandler {
	return &CommandHandler{
		bridge: b,
		logger: logger,
	}
}

// ExecuteHandler handles POST /api/command
func (h *CommandHandler) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var cmd models.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if cmd.Name == "" {
		WriteError(w, http.StatusBadRequest, "command name is required")
		return
	}

	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}

// ListCommandsHandler handles GET /api/commands
func (h *CommandHandler) ListCommandsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"commands": h.bridge.Commands(),
	})
}
