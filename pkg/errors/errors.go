// Package errors provides structured error types for unihack.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across all CLI commands
//   - Machine-readable error codes for exit-status mapping
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes fall into three groups:
//   - fatal metadata problems (MALFORMED_SNAPSHOT, AMBIGUOUS_IDENTITY)
//   - recoverable plan conditions (ALREADY_HACKED, CHECKSUM_MISMATCH)
//   - everything else (INVALID_MANIFEST, PACKAGE_NOT_FOUND, METADATA_ERROR, INTERNAL_ERROR)
//
// # Usage
//
//	err := errors.New(errors.ErrCodePackageNotFound, "package %s is not in use", name)
//	if errors.Is(err, errors.ErrCodePackageNotFound) {
//	    // Handle missing package
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMetadata, origErr, "cargo metadata failed in %s", dir)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Fatal metadata inconsistencies. These indicate broken input and are
	// surfaced verbatim, never retried.
	ErrCodeMalformedSnapshot Code = "MALFORMED_SNAPSHOT"
	ErrCodeAmbiguousIdentity Code = "AMBIGUOUS_IDENTITY"

	// Recoverable plan conditions. The caller decides what to do next.
	ErrCodeAlreadyHacked    Code = "ALREADY_HACKED"
	ErrCodeChecksumMismatch Code = "CHECKSUM_MISMATCH"

	// Manifest problems
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeNotHacked       Code = "NOT_HACKED"

	// Lookup failures
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"

	// Subprocess / environment
	ErrCodeMetadata Code = "METADATA_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// Recoverable reports whether err is a plan condition the caller is expected
// to handle (refuse to re-apply, prompt for restore) rather than a fault.
func Recoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeAlreadyHacked, ErrCodeChecksumMismatch:
		return true
	default:
		return false
	}
}
