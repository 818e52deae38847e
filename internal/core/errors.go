package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInvalidInput = "invalid_input"
)

var (
	// ErrUnauthorized is returned when no valid session is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when the interview for a room does not exist.
	ErrNotFound = errors.New("interview not found")
	// ErrForbidden is returned when the user is not a participant of the room.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidInput is returned for empty content or malformed frames.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorCode maps a domain error to its wire-level code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return ErrCodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrForbidden):
		return ErrCodeForbidden
	case errors.Is(err, ErrInvalidInput):
		return ErrCodeInvalidInput
	default:
		return "internal"
	}
}
