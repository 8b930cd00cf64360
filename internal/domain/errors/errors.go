// Package errors provides the error taxonomy shared by services and handlers.
// Handlers map the sentinel categories to HTTP status codes with errors.Is.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error categories
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a dependency is temporarily unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrUpstream indicates a transfer history provider failed
	ErrUpstream = errors.New("upstream provider error")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NotFoundError creates a not found error, e.g. NotFoundError("POOL")
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    fmt.Sprintf("%s_NOT_FOUND", resource),
		Message: fmt.Sprintf("%s not found", humanize(resource)),
	}
}

// ValidationError creates a validation error for a single field
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// ServiceUnavailableError creates a service unavailable error
func ServiceUnavailableError(service string, err error) *DomainError {
	de := &DomainError{
		Err:       ErrServiceUnavailable,
		Code:      "SERVICE_UNAVAILABLE",
		Message:   fmt.Sprintf("%s service is temporarily unavailable", service),
		Retryable: true,
	}
	if err != nil {
		de.Details = map[string]interface{}{"cause": err.Error()}
	}
	return de
}

// UpstreamError describes a failed call to a transfer provider.
// 429 and 5xx responses are retryable, other statuses are not.
func UpstreamError(provider string, status int, err error) *DomainError {
	de := &DomainError{
		Err:       ErrUpstream,
		Code:      "UPSTREAM_ERROR",
		Message:   fmt.Sprintf("%s request failed", provider),
		Retryable: status == 0 || status == 429 || status >= 500,
		Details: map[string]interface{}{
			"provider": provider,
			"status":   status,
		},
	}
	if err != nil {
		de.Message = fmt.Sprintf("%s request failed: %v", provider, err)
	}
	return de
}

// IsRetryable returns true if the error is retryable
func (e *DomainError) IsRetryable() bool {
	return e.Retryable
}

func humanize(resource string) string {
	return strings.ToLower(strings.ReplaceAll(resource, "_", " "))
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsServiceUnavailable checks if an error is a service unavailable error
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorDetails extracts details from a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
