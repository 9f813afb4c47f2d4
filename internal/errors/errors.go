package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/zsiec/blend/internal/compositor"
)

// ErrorType classifies an API error.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"

	// Compositing session error kinds, mapped from the compositor
	// package by FromSession.
	ErrorTypeSessionState  ErrorType = "SESSION_STATE"
	ErrorTypeUnknownStream ErrorType = "UNKNOWN_STREAM"
	ErrorTypeCompositing   ErrorType = "COMPOSITING_FAILURE"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapInternalError wraps an error as internal server error.
func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message, http.StatusInternalServerError)
}

// FromSession maps a compositing session error onto its API
// representation. An unknown stream is a 404, an invalid-state
// rejection is a 409 and a compositing failure is a 500; anything else
// is treated as internal.
func FromSession(err error) *AppError {
	var streamErr *compositor.StreamError
	if stderrors.As(err, &streamErr) {
		return Wrap(err, ErrorTypeUnknownStream, streamErr.Error(), http.StatusNotFound).
			WithDetails(map[string]interface{}{"stream_id": streamErr.StreamID})
	}

	var stateErr *compositor.StateError
	if stderrors.As(err, &stateErr) {
		return Wrap(err, ErrorTypeSessionState, stateErr.Error(), http.StatusConflict).
			WithDetails(map[string]interface{}{"state": stateErr.State})
	}

	var compErr *compositor.CompositeError
	if stderrors.As(err, &compErr) {
		return Wrap(err, ErrorTypeCompositing, compErr.Error(), http.StatusInternalServerError).
			WithDetails(map[string]interface{}{"pts_us": compErr.PTS})
	}

	return WrapInternalError(err, "An unexpected error occurred")
}

// GetAppError extracts AppError from an error.
func GetAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
