package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a specific error type for better error handling
type ErrorCode string

const (
	// Dispatch errors
	ErrCodeUnknownInterface ErrorCode = "UNKNOWN_INTERFACE"
	ErrCodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"
	ErrCodeHandlerFailed    ErrorCode = "HANDLER_EXECUTION_FAILED"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Protection errors
	ErrCodeCircuitBreakerOpen ErrorCode = "CIRCUIT_BREAKER_OPEN"
	ErrCodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Upstream errors
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamStatus      ErrorCode = "UPSTREAM_BAD_STATUS"

	// Request processing errors
	ErrCodeInvalidDirective     ErrorCode = "INVALID_DIRECTIVE"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"

	// Infrastructure errors
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// GatewayError represents a structured error with context
type GatewayError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Cause     error                  `json:"-"` // Original error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error code
func (e *GatewayError) Is(target error) bool {
	if t, ok := target.(*GatewayError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithMetadata adds metadata to the error
func (e *GatewayError) WithMetadata(key string, value interface{}) *GatewayError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *GatewayError) HTTPStatusCode() int {
	switch e.Code {
	case ErrCodeUnknownInterface, ErrCodeInvalidOperation, ErrCodeInvalidDirective:
		return 400
	case ErrCodeAuthenticationFailed:
		return 401
	case ErrCodeRateLimitExceeded:
		return 429
	case ErrCodeCircuitBreakerOpen, ErrCodeUpstreamUnavailable:
		return 503
	case ErrCodeUpstreamTimeout:
		return 504
	default:
		return 500
	}
}

// NewError creates a new GatewayError
func NewError(code ErrorCode, component, message string) *GatewayError {
	return &GatewayError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WrapError wraps an existing error with GatewayError structure
func WrapError(err error, code ErrorCode, component, message string) *GatewayError {
	if err == nil {
		return nil
	}

	return &GatewayError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
		Details:   err.Error(),
	}
}

// Common error constructors for frequently used errors

// NewUnknownInterfaceError creates an error for an interface with no route entry
func NewUnknownInterfaceError(iface string) *GatewayError {
	return NewError(
		ErrCodeUnknownInterface,
		"gateway",
		fmt.Sprintf("no route entry for interface %s", iface),
	).WithMetadata("interface", iface)
}

// NewResolutionError creates an error for a route entry that could not be resolved
func NewResolutionError(iface, module, entryPoint string, cause error) *GatewayError {
	return WrapError(
		cause,
		ErrCodeResolutionFailed,
		"gateway",
		fmt.Sprintf("failed to resolve %s via %s.%s", iface, module, entryPoint),
	).WithMetadata("interface", iface).WithMetadata("module", module)
}

// NewHandlerError wraps a handler failure with dispatch context
func NewHandlerError(iface, operation string, cause error) *GatewayError {
	return WrapError(
		cause,
		ErrCodeHandlerFailed,
		"gateway",
		fmt.Sprintf("handler for %s.%s failed", iface, operation),
	).WithMetadata("interface", iface).WithMetadata("operation", operation)
}

// NewBreakerOpenError creates a circuit breaker rejection error
func NewBreakerOpenError(name string) *GatewayError {
	return NewError(
		ErrCodeCircuitBreakerOpen,
		"circuit_breaker",
		fmt.Sprintf("circuit breaker %s is open", name),
	).WithMetadata("breaker", name)
}

// NewRateLimitError creates a rate limit rejection error
func NewRateLimitError(resource string) *GatewayError {
	return NewError(
		ErrCodeRateLimitExceeded,
		"rate_limiter",
		fmt.Sprintf("rate limit exceeded for %s", resource),
	).WithMetadata("resource", resource)
}

// IsGatewayError checks if an error is a GatewayError
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return ErrCodeInternalError
}

// GetHTTPStatusCode gets the appropriate HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.HTTPStatusCode()
	}
	return 500
}
