package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrBackendUnavailable wraps every transport failure, timeouts included.
var ErrBackendUnavailable = errors.New("backend unavailable")

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

// ValidationError is a client-side constraint violation. It is produced before
// any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UserError carries a message meant to be shown to the user as-is, plus the
// underlying cause for logs.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UserError) Unwrap() error { return e.Err }

func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsRecoverable reports whether a failed create may be retried later:
// transport failures, timeouts and 5xx answers are, 4xx answers are not.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var withStatus *ErrorWithStatusCode
	if errors.As(err, &withStatus) {
		return withStatus.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// StatusCode maps err to the status a handler should answer with.
func StatusCode(err error) int {
	var withStatus *ErrorWithStatusCode
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &withStatus):
		return withStatus.StatusCode
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
