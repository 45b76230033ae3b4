package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType classifies failures across the search pipeline and its
// external dependencies.
type ErrorType string

const (
	// ErrorTypeValidation indicates a malformed or rejected request
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeTimeoutGate indicates the gate classification timed out
	ErrorTypeTimeoutGate ErrorType = "TIMEOUT_GATE"

	// ErrorTypeTimeoutIntent indicates intent classification timed out
	ErrorTypeTimeoutIntent ErrorType = "TIMEOUT_INTENT"

	// ErrorTypeTimeoutMapping indicates query mapping timed out
	ErrorTypeTimeoutMapping ErrorType = "TIMEOUT_MAPPING"

	// ErrorTypeTimeoutSearch indicates the provider search timed out
	ErrorTypeTimeoutSearch ErrorType = "TIMEOUT_SEARCH"

	// ErrorTypeTimeoutEnrichment indicates an enrichment lookup timed out
	ErrorTypeTimeoutEnrichment ErrorType = "TIMEOUT_ENRICHMENT"

	// ErrorTypeNetwork indicates a transport-level failure reaching a dependency
	ErrorTypeNetwork ErrorType = "NETWORK_ERROR"

	// ErrorTypeSchemaInvalid indicates a structured-output contract violation
	ErrorTypeSchemaInvalid ErrorType = "SCHEMA_INVALID"

	// ErrorTypeRateLimit indicates a dependency rejected the call for quota
	ErrorTypeRateLimit ErrorType = "RATE_LIMIT"

	// ErrorTypeServerShutdown indicates work was abandoned because the
	// process is draining
	ErrorTypeServerShutdown ErrorType = "SERVER_SHUTDOWN"

	// ErrorTypeUnknown is the fallback classification
	ErrorTypeUnknown ErrorType = "UNKNOWN"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an error with an explicit type
func New(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewTimeoutError creates a timeout error for a specific dependency stage
func NewTimeoutError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewNetworkError creates a transport-failure error
func NewNetworkError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Message: message, Err: err}
}

// NewSchemaInvalidError creates a structured-output contract error
func NewSchemaInvalidError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeSchemaInvalid, Message: message, Err: err}
}

// NewRateLimitError creates a quota-rejection error
func NewRateLimitError(message string) *AppError {
	return &AppError{Type: ErrorTypeRateLimit, Message: message}
}

// NewShutdownError creates a drain-abandonment error
func NewShutdownError(message string) *AppError {
	return &AppError{Type: ErrorTypeServerShutdown, Message: message}
}

// TypeOf classifies an arbitrary error into the taxonomy. Timeouts that
// were not already tagged with a stage come back as the given fallback
// timeout type.
func TypeOf(err error, timeoutType ErrorType) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutType
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return timeoutType
		}
		return ErrorTypeNetwork
	}

	return ErrorTypeUnknown
}
