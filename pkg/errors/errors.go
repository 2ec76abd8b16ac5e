// Package errors provides structured error types for CyclingHub.
//
// Every error that crosses a package boundary should be a *HubError so
// callers can branch on the code, decide on retries and log metadata
// consistently.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error identifier for categorization.
type ErrorCode string

// Common error codes used throughout CyclingHub.
const (
	// Routing errors
	CodeRoutingUnavailable  ErrorCode = "ROUTING_PROVIDER_UNAVAILABLE"
	CodeRoutingRateLimited  ErrorCode = "ROUTING_RATE_LIMITED"
	CodeRoutingAuthFailed   ErrorCode = "ROUTING_AUTH_FAILED"
	CodeOperationSuperseded ErrorCode = "OPERATION_SUPERSEDED"

	// Elevation errors
	CodeElevationUnavailable ErrorCode = "ELEVATION_UNAVAILABLE"

	// Export errors
	CodeEmptyExportInput  ErrorCode = "EMPTY_EXPORT_INPUT"
	CodeInvalidFieldValue ErrorCode = "INVALID_FIELD_VALUE"
	CodeInvalidFormat     ErrorCode = "INVALID_FORMAT"

	// Persistence errors
	CodeRouteNotFound ErrorCode = "ROUTE_NOT_FOUND"

	// Infrastructure errors
	CodeStorageError ErrorCode = "STORAGE_ERROR"
	CodeCacheError   ErrorCode = "CACHE_ERROR"
	CodePubSubError  ErrorCode = "PUBSUB_ERROR"
	CodeSecretError  ErrorCode = "SECRET_ERROR"

	// General errors
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
	CodeTimeoutError    ErrorCode = "TIMEOUT_ERROR"
)

// HubError is the base error type for all CyclingHub errors.
type HubError struct {
	Code      ErrorCode         // Unique error code for categorization
	Message   string            // Human-readable error message
	Cause     error             // Underlying error (if any)
	Retryable bool              // Whether the operation can be retried
	Metadata  map[string]string // Additional context
}

// Error implements the error interface.
func (e *HubError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *HubError) Unwrap() error {
	return e.Cause
}

// Is matches any HubError carrying the same code, so sentinels keep
// matching after WithCause/WithMessage produced a copy.
func (e *HubError) Is(target error) bool {
	t, ok := target.(*HubError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause wraps an underlying error.
func (e *HubError) WithCause(cause error) *HubError {
	return &HubError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMessage replaces the message.
func (e *HubError) WithMessage(msg string) *HubError {
	return &HubError{
		Code:      e.Code,
		Message:   msg,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMessagef is WithMessage with fmt formatting.
func (e *HubError) WithMessagef(format string, args ...any) *HubError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithMetadata adds contextual metadata.
func (e *HubError) WithMetadata(key, value string) *HubError {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	return &HubError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  meta,
	}
}

// Pre-defined sentinel errors for common cases.
// Use these with errors.Is() or derive from them with .WithCause().
var (
	ErrRoutingUnavailable = &HubError{Code: CodeRoutingUnavailable, Message: "routing provider unavailable", Retryable: true}
	ErrRoutingRateLimited = &HubError{Code: CodeRoutingRateLimited, Message: "routing provider rate limited", Retryable: true}
	ErrRoutingAuthFailed  = &HubError{Code: CodeRoutingAuthFailed, Message: "routing provider rejected credentials", Retryable: false}
	ErrSuperseded         = &HubError{Code: CodeOperationSuperseded, Message: "operation superseded by a newer edit", Retryable: false}

	ErrElevationUnavailable = &HubError{Code: CodeElevationUnavailable, Message: "elevation service unavailable", Retryable: true}

	ErrEmptyExportInput  = &HubError{Code: CodeEmptyExportInput, Message: "nothing to export", Retryable: false}
	ErrInvalidFieldValue = &HubError{Code: CodeInvalidFieldValue, Message: "value cannot be represented in FIT field", Retryable: false}
	ErrInvalidFormat     = &HubError{Code: CodeInvalidFormat, Message: "invalid file format", Retryable: false}

	ErrRouteNotFound = &HubError{Code: CodeRouteNotFound, Message: "saved route not found", Retryable: false}

	ErrStorageError = &HubError{Code: CodeStorageError, Message: "storage error", Retryable: true}
	ErrCacheError   = &HubError{Code: CodeCacheError, Message: "cache error", Retryable: true}
	ErrPubSubError  = &HubError{Code: CodePubSubError, Message: "pubsub error", Retryable: true}
	ErrSecretError  = &HubError{Code: CodeSecretError, Message: "secret access error", Retryable: true}

	ErrValidation = &HubError{Code: CodeValidationError, Message: "validation error", Retryable: false}
	ErrInternal   = &HubError{Code: CodeInternalError, Message: "internal error", Retryable: false}
	ErrTimeout    = &HubError{Code: CodeTimeoutError, Message: "timeout", Retryable: true}
)

// New creates a new HubError with the given code and message.
func New(code ErrorCode, message string) *HubError {
	return &HubError{
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// NewRetryable creates a new retryable HubError.
func NewRetryable(code ErrorCode, message string) *HubError {
	return &HubError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// Wrap wraps an error with a HubError.
func Wrap(cause error, code ErrorCode, message string) *HubError {
	return &HubError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: false,
	}
}

// WrapRetryable wraps an error with a retryable HubError.
func WrapRetryable(cause error, code ErrorCode, message string) *HubError {
	return &HubError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var hubErr *HubError
	if stderrors.As(err, &hubErr) {
		return hubErr.Retryable
	}
	return false
}

// GetCode extracts the error code from an error, if available.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var hubErr *HubError
	if stderrors.As(err, &hubErr) {
		return hubErr.Code
	}
	return CodeInternalError
}
