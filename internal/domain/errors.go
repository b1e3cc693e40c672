package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateRequest is returned when a contract request with the same
// event id and source was already forwarded to the same requestee.
var ErrDuplicateRequest = errors.New("duplicate contract request")

// ValidationError means the inbound request was malformed, incomplete or
// referred to something that is not registered. It is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RemoteError is a non-200 or unusable response from a counterpart's
// Authenticate or UpdateEvent endpoint. Message is opaque; the counterpart's
// response body only goes to the log.
type RemoteError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (status %d, url %s)", e.Message, e.StatusCode, e.URL)
}

// StateError is an internal consistency violation, such as a correlation
// record whose requestor has no data source anymore.
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

// Statef builds a StateError with a formatted message.
func Statef(format string, args ...any) error {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}

// AccessError means the calling organization may not perform the operation.
type AccessError struct {
	Message string
}

func (e *AccessError) Error() string { return e.Message }

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRemote reports whether err wraps a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsState reports whether err wraps a StateError.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsAccess reports whether err wraps an AccessError.
func IsAccess(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}
