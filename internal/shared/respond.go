package shared

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Envelope is the JSON response shape shared with the dashboard frontend.
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// RespondData writes a success envelope with the given payload.
func RespondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// RespondMessage writes a success envelope carrying only a message.
func RespondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: true, Message: message})
}

// RespondError maps a kinded error onto the HTTP status taxonomy and
// writes a failure envelope.
func RespondError(w http.ResponseWriter, err error) {
	env := Envelope{Success: false, Message: UserSafeMessage(err)}
	var kerr *Error
	if errors.As(err, &kerr) && len(kerr.Fields) > 0 {
		env.Errors = kerr.Fields
	}
	writeJSON(w, statusFor(KindOf(err)), env)
}

func statusFor(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateName, KindDuplicateEmail, KindHasAssignedUsers:
		return http.StatusConflict
	case KindInvalidReference, KindValidationFailed:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
