package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ValidationError writes a 422 response listing each violation.
func ValidationError(w http.ResponseWriter, message string, violations []string) {
	JSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: message, Violations: violations})
}

// ServiceUnavailableMessage is the only detail shown for infrastructure failures.
const ServiceUnavailableMessage = "service temporarily unavailable, please try again"

// ServiceUnavailable writes the 503 response for a store, session or audit outage.
func ServiceUnavailable(w http.ResponseWriter) {
	Error(w, http.StatusServiceUnavailable, ServiceUnavailableMessage)
}
