package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches typed errors by code so errors.Is works across Clone/Wrap copies.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors covering the submission pipeline failure taxonomy.
var (
	// ErrPermissionDenied degrades the affected feature (location display,
	// camera-dependent flows); it never aborts the process.
	ErrPermissionDenied = New("PERMISSION_DENIED", http.StatusForbidden, "permission denied")
	// ErrConnectivityUnavailable marks the offline branch; callers treat it
	// as routing information, not as a user-facing failure.
	ErrConnectivityUnavailable = New("CONNECTIVITY_UNAVAILABLE", http.StatusServiceUnavailable, "device is offline")
	ErrTransportFailure        = New("TRANSPORT_FAILURE", http.StatusBadGateway, "server unreachable")
	ErrApplicationRejection    = New("APPLICATION_REJECTION", http.StatusUnprocessableEntity, "request rejected by server")
	ErrTimeout                 = New("TIMEOUT", http.StatusGatewayTimeout, "verification timed out")
	ErrCaptureFailure          = New("CAPTURE_FAILURE", http.StatusInternalServerError, "camera failed to produce an image")
	ErrPrecondition            = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrNotFound                = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation              = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal                = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
