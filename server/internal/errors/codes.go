package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure for callers and the HTTP layer.
type ErrorCode string

const (
	// ErrCodeIO indicates a file write or delete failure.
	ErrCodeIO ErrorCode = "IO_ERROR"
	// ErrCodePersist indicates a transaction commit failure.
	ErrCodePersist ErrorCode = "PERSIST_ERROR"
	// ErrCodeNetwork indicates a reply fetch transport, status, or decoding failure.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeNotFound indicates a lookup by id yielded nothing.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeReentrancyRejected indicates a reply fetch was requested while one
	// was already in flight for the same dialog.
	ErrCodeReentrancyRejected ErrorCode = "REENTRANCY_REJECTED"
	// ErrCodeUnentitled indicates the entitlement gate refused the operation.
	ErrCodeUnentitled ErrorCode = "UNENTITLED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// AppError is a structured error carrying a code, message, and cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// CodeOf returns the code of err, or empty when err carries no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Convenience constructors for common error types.

// IO creates a file I/O error.
func IO(msg string, cause error) *AppError {
	return &AppError{Code: ErrCodeIO, Message: msg, Cause: cause}
}

// Persist creates a transaction commit error.
func Persist(msg string, cause error) *AppError {
	return &AppError{Code: ErrCodePersist, Message: msg, Cause: cause}
}

// Network creates a reply fetch error.
func Network(msg string, cause error) *AppError {
	return &AppError{Code: ErrCodeNetwork, Message: msg, Cause: cause}
}

// NotFound creates a not-found error.
func NotFound(msg string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: msg}
}

// ReentrancyRejected creates a duplicate in-flight fetch error.
func ReentrancyRejected(msg string) *AppError {
	return &AppError{Code: ErrCodeReentrancyRejected, Message: msg}
}

// Unentitled creates an entitlement gate error.
func Unentitled(msg string) *AppError {
	return &AppError{Code: ErrCodeUnentitled, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AppError {
	return &AppError{Code: ErrCodeInvalidArgument, Message: msg}
}
