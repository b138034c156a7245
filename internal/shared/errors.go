package shared

import "errors"

// Kind classifies service errors so the transport layer can map them
// to HTTP status codes without inspecting messages.
type Kind int

const (
	// KindInternal covers unexpected persistence or infrastructure failures.
	KindInternal Kind = iota
	// KindUnauthenticated indicates a missing or invalid principal.
	KindUnauthenticated
	// KindForbidden indicates the principal lacks the required permission.
	KindForbidden
	// KindNotFound indicates the requested record does not exist.
	KindNotFound
	// KindDuplicateName indicates a role name collision.
	KindDuplicateName
	// KindDuplicateEmail indicates a user email collision.
	KindDuplicateEmail
	// KindInvalidReference indicates an id list referencing missing records.
	KindInvalidReference
	// KindHasAssignedUsers blocks role deletion while users hold the role.
	KindHasAssignedUsers
	// KindValidationFailed carries field-level validation errors.
	KindValidationFailed
	// KindRateLimited indicates the per-IP request ceiling was hit.
	KindRateLimited
)

// Error is the kinded error exchanged between services and transport.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds field-level detail for validation failures.
	Fields map[string]string
	// Refs lists the offending ids for invalid-reference failures.
	Refs []int64
}

func (e *Error) Error() string {
	return e.Message
}

// E constructs a kinded error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// ValidationError builds a field-level validation failure.
func ValidationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidationFailed, Message: "validation failed", Fields: fields}
}

// ReferenceError reports ids that do not resolve to existing records.
func ReferenceError(message string, refs []int64) *Error {
	return &Error{Kind: KindInvalidReference, Message: message, Refs: refs}
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = E(KindNotFound, "not found")
	// ErrUnauthenticated indicates a request without a valid session.
	ErrUnauthenticated = E(KindUnauthenticated, "authentication required")
	// ErrForbidden indicates a request lacking the required permission.
	ErrForbidden = E(KindForbidden, "permission denied")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = E(KindUnauthenticated, "invalid credentials")
	// ErrRateLimited indicates too many requests from one source.
	ErrRateLimited = E(KindRateLimited, "too many requests")
)

// UserSafeMessage returns a message safe to surface to API consumers.
// Internal failures are collapsed into a generic message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if KindOf(err) == KindInternal {
		return "an unexpected error occurred"
	}
	return err.Error()
}
