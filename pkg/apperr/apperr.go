package apperr

import "errors"

// Error is a validation or lookup failure carrying an HTTP-style status code.
// These errors are synchronous and non-retryable: they propagate to the caller
// unchanged and are rendered as-is by the HTTP layer.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// New creates a coded error.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// StatusOf extracts the HTTP status from err, walking the wrap chain.
// Unrecognized errors map to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 500
}
