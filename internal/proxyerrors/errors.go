// Package proxyerrors provides the outcome error types of an embedding request.
// Each type has a sentinel so callers can branch with errors.Is and map to a transport status once.
package proxyerrors

// ErrValidation represents a validation error.
// Use when client input fails validation (blank text, empty batch).
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrConfig is the sentinel for deployment-caused errors (missing API key or gateway URL).
var ErrConfig = &ConfigError{}

// ConfigError is reported at request time when the upstream provider is not configured.
type ConfigError struct {
	Message string
}

// NewConfigError creates a ConfigError with a custom message.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{Message: message}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "embedding provider not configured"
}

// Is implements the error interface for error comparison.
func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)

	return ok
}

// ErrUpstreamTimeout is the sentinel for upstream calls that exceeded the fixed timeout.
var ErrUpstreamTimeout = &UpstreamTimeoutError{}

// UpstreamTimeoutError wraps the error of an upstream call that timed out.
type UpstreamTimeoutError struct {
	Provider string
	Err      error
}

// NewUpstreamTimeoutError creates an UpstreamTimeoutError.
func NewUpstreamTimeoutError(provider string, err error) *UpstreamTimeoutError {
	return &UpstreamTimeoutError{Provider: provider, Err: err}
}

// Error implements the error interface.
func (e *UpstreamTimeoutError) Error() string {
	if e.Provider != "" {
		return e.Provider + " embedding request timed out"
	}

	return "embedding request timed out"
}

// Unwrap returns the underlying error.
func (e *UpstreamTimeoutError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *UpstreamTimeoutError) Is(target error) bool {
	_, ok := target.(*UpstreamTimeoutError)

	return ok
}

// ErrUpstreamNetwork is the sentinel for transport-level failures reaching the provider.
var ErrUpstreamNetwork = &UpstreamNetworkError{}

// UpstreamNetworkError wraps a transport-level failure.
type UpstreamNetworkError struct {
	Provider string
	Err      error
}

// NewUpstreamNetworkError creates an UpstreamNetworkError.
func NewUpstreamNetworkError(provider string, err error) *UpstreamNetworkError {
	return &UpstreamNetworkError{Provider: provider, Err: err}
}

// Error implements the error interface.
func (e *UpstreamNetworkError) Error() string {
	if e.Err == nil {
		return "network error"
	}

	return "network error: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *UpstreamNetworkError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *UpstreamNetworkError) Is(target error) bool {
	_, ok := target.(*UpstreamNetworkError)

	return ok
}

// ErrUpstream is the sentinel for application-level provider errors
// (non-success status, missing embedding data).
var ErrUpstream = &UpstreamError{}

// UpstreamError wraps an error reported by the provider itself.
type UpstreamError struct {
	Provider string
	Err      error
}

// NewUpstreamError creates an UpstreamError.
func NewUpstreamError(provider string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Err: err}
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return "upstream error"
	}

	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *UpstreamError) Is(target error) bool {
	_, ok := target.(*UpstreamError)

	return ok
}
