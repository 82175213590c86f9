package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/flutter-gis/earthbridge/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteResult writes a CommandResult envelope. The envelope's own status
// tag is the contract with the UI; the HTTP status stays 200 so polling
// clients distinguish transport failures from command failures.
func WriteResult(w http.ResponseWriter, result models.CommandResult) error {
	return WriteJSON(w, http.StatusOK, result)
}

// WriteError writes a standard error JSON response for transport-level
// problems (malformed body, unknown route).
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}
