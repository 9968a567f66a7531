package providers

import (
	"fmt"
	"time"
)

// ProviderError represents a general provider error.
type ProviderError struct {
	Provider string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// AuthError represents a rejected credential (HTTP 401 or 403).
type AuthError struct {
	Provider string
	Message  string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError represents HTTP 429. RetryAfter is zero when the backend
// did not say.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// TimeoutError represents a request abandoned because its context ended.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
	Cause    error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

// Unwrap returns the context error that ended the request.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ParseError represents a malformed backend response.
type ParseError struct {
	Provider string

	// RawResponse is the body that failed to parse
	RawResponse string

	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ConfigError reports a backend that cannot run as configured, most often
// because its credential is missing.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// SubmissionError reports that a research task could not be created.
type SubmissionError struct {
	Provider string
	Cause    error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("provider %q task submission failed: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// PollError reports that the status of a task could not be retrieved.
type PollError struct {
	Provider string
	TaskID   string
	Cause    error
}

// Error implements the error interface.
func (e *PollError) Error() string {
	return fmt.Sprintf("provider %q poll of task %q failed: %v", e.Provider, e.TaskID, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *PollError) Unwrap() error {
	return e.Cause
}
