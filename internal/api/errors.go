package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sporehut/sporehut-core/internal/controller"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeInternal      = "internal_error"
	ErrCodeUnavailable   = "unavailable"
	ErrCodeTimeout       = "timeout"
	ErrCodeActuatorFault = "actuator_fault"
	ErrCodeNotConfigured = "not_configured"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// commandStatus maps a controller error to an HTTP status and code.
func commandStatus(err error) (int, string) {
	switch {
	case errors.Is(err, controller.ErrUnknownDevice):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, controller.ErrChannelFull), errors.Is(err, controller.ErrOwnerStopped):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	case errors.Is(err, controller.ErrReplyTimeout):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	case errors.Is(err, controller.ErrActuatorFault):
		return http.StatusInternalServerError, ErrCodeActuatorFault
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeCommandError writes the response for a failed device command.
func writeCommandError(w http.ResponseWriter, err error) {
	status, code := commandStatus(err)
	writeError(w, status, code, err.Error())
}
