// Package response holds the JSON response helpers shared by all API
// handlers.
package response

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the error payload every non-2xx API response carries.
// Details is optional context, typically the offending input value.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// RespondJSON writes data as a JSON response with the given status code.
// A nil data writes the status code alone. Encoding failures are logged;
// the status line has already been sent, so the response cannot be
// rewritten at that point.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode JSON response: %v", err)
		}
	}
}

// RespondError writes an ErrorResponse with the given status code.
func RespondError(w http.ResponseWriter, status int, message string, details any) {
	RespondJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
