// Package errors provides structured error types for PaperBanana.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the MCP server
//   - Machine-readable error codes for programmatic handling
//   - Actionable error messages for configuration mistakes
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - CONFIG_*: Provider configuration failures (never retried)
//   - PROVIDER_*: Remote model call failures
//   - RUN_*: Run artifact integrity failures (fatal for resume)
//   - INVALID_*: Input validation failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownProvider, "unknown VLM provider: %q", name)
//	if errors.Is(err, errors.ErrCodeUnknownProvider) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeProviderFailed, origErr, "planning call failed")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Provider configuration errors (raised at construction, never retried)
	ErrCodeMissingCredential Code = "CONFIG_MISSING_CREDENTIAL"
	ErrCodeUnknownProvider   Code = "CONFIG_UNKNOWN_PROVIDER"
	ErrCodeInvalidConfig     Code = "CONFIG_INVALID"

	// Remote provider errors
	ErrCodeProviderTransient Code = "PROVIDER_TRANSIENT"
	ErrCodeProviderFailed    Code = "PROVIDER_FAILED"
	ErrCodeEmptyResponse     Code = "PROVIDER_EMPTY_RESPONSE"

	// Run artifact integrity errors (fatal, non-retryable)
	ErrCodeRunNotFound     Code = "RUN_NOT_FOUND"
	ErrCodeRunInputMissing Code = "RUN_INPUT_MISSING"
	ErrCodeRunCorrupt      Code = "RUN_CORRUPT"

	// Input validation errors
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidDiagramType Code = "INVALID_DIAGRAM_TYPE"
	ErrCodeFileNotFound       Code = "FILE_NOT_FOUND"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
