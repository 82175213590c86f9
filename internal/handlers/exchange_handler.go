package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/bridge"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// ExchangeHandler serves the data-exchange and one-shot backend routes.
type ExchangeHandler struct {
	bridge *bridge.Bridge
	logger arbor.ILogger
}

// NewExchangeHandler creates a new ExchangeHandler
func NewExchangeHandler(b *bridge.Bridge, logger arbor.ILogger) *ExchangeHandler {
	return &ExchangeHandler{
		bridge: b,
		logger: logger,
	}
}

// ExchangeDataHandler handles POST /api/exchange. The body is the
// exchange-data argument object: {payload, command, args}.
func (h *ExchangeHandler) ExchangeDataHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	cmd := models.Command{Name: bridge.CmdExchangeData, Args: body}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}

// InitBackendHandler handles POST /api/backend/init
func (h *ExchangeHandler) InitBackendHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	cmd := models.Command{Name: bridge.CmdInitBackend}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}

// CheckAuthHandler handles GET /api/backend/auth
func (h *ExchangeHandler) CheckAuthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	cmd := models.Command{Name: bridge.CmdCheckAuth}
	WriteResult(w, h.bridge.Execute(r.Context(), cmd))
}
