package api

import (
	"encoding/json"
	"net/http"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
)

// ErrorResponse is the JSON error envelope. Details carries per-field
// validation messages and is omitted otherwise.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Note: if encoding fails after WriteHeader, the status is already on
// the wire; the error is logged and the body left short.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, logger log.Logger, status int, errCode, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: errCode, Message: message})
}

// writeValidationError writes a 400 with per-field messages.
func writeValidationError(w http.ResponseWriter, logger log.Logger, details map[string]string) {
	writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_failed",
		Message: "request validation failed",
		Details: details,
	})
}
