package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of pipeline errors
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeImageDecode       ErrorType = "image_decode"
	ErrorTypeEngineTimeout     ErrorType = "engine_timeout"
	ErrorTypeEngineUnavailable ErrorType = "engine_unavailable"
	ErrorTypeProviderDown      ErrorType = "provider_unavailable"
	ErrorTypeRateLimited       ErrorType = "rate_limited"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeNoPlausibleTitle  ErrorType = "no_plausible_title"
	ErrorTypeNetwork           ErrorType = "network"
	ErrorTypeInternal          ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewImageDecodeError reports that the original image bytes yielded no usable pixels.
// This is the only unrecoverable engine-side failure.
func NewImageDecodeError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeImageDecode,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewEngineTimeoutError reports a recognition engine that exceeded its deadline.
func NewEngineTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeEngineTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewEngineUnavailableError reports a recognition engine that could not run at all.
func NewEngineUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeEngineUnavailable,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewProviderUnavailableError reports a metadata provider that could not be reached.
func NewProviderUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProviderDown,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewRateLimitedError reports a provider that refused the request for quota reasons.
func NewRateLimitedError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error. Not-found is a valid terminal
// pipeline outcome, not a fault.
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewNoPlausibleTitleError reports that candidate extraction produced nothing
// passing the plausibility gate.
func NewNoPlausibleTitleError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNoPlausibleTitle,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRecoverable reports whether the pipeline may continue with the next
// engine or provider after this error.
func IsRecoverable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Type {
	case ErrorTypeEngineTimeout, ErrorTypeEngineUnavailable,
		ErrorTypeProviderDown, ErrorTypeRateLimited:
		return true
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
