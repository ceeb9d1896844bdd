// Package api provides HTTP handlers for the API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse defines the standard error response structure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithJSON writes a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondWithError writes a JSON error response derived from err: the status
// code comes from the error's type and the message is a sanitized version
// that does not leak internal details.
func RespondWithError(w http.ResponseWriter, err error) {
	RespondWithJSON(w, MapErrorToStatusCode(err), ErrorResponse{
		Error: GetSafeErrorMessage(err),
	})
}
