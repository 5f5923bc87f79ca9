// Package errors provides structured error types for the Forge admin services.
// Every error carries a category, code, message, and retryable flag so the
// HTTP layer and the snapshot backend can react consistently.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryFetch      ErrorCategory = "FETCH"
	ErrCategorySource     ErrorCategory = "SOURCE"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategorySnapshot   ErrorCategory = "SNAPSHOT"
	ErrCategoryExport     ErrorCategory = "EXPORT"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeUnknownResource = "UNKNOWN_RESOURCE"
	CodeUnknownTable    = "UNKNOWN_TABLE"
	CodeInvalidRequest  = "INVALID_REQUEST"

	// Fetch codes
	CodeTransportFailed = "TRANSPORT_FAILED"
	CodeBadStatus       = "BAD_STATUS"
	CodeMalformedBody   = "MALFORMED_BODY"

	// Source codes
	CodeConnectFailed = "CONNECT_FAILED"
	CodeQueryFailed   = "QUERY_FAILED"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Snapshot codes
	CodeSnapshotMissing = "SNAPSHOT_MISSING"
	CodeSnapshotCorrupt = "SNAPSHOT_CORRUPT"

	// Export codes
	CodeWriteFailed = "WRITE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// ForgeError is the structured error type used throughout the system.
type ForgeError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *ForgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ForgeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *ForgeError) Is(target error) bool {
	var t *ForgeError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new ForgeError.
func New(category ErrorCategory, code, message string) *ForgeError {
	return &ForgeError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new ForgeError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *ForgeError {
	return &ForgeError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *ForgeError) WithDetails(details map[string]interface{}) *ForgeError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a ForgeError.
func GetCategory(err error) ErrorCategory {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a ForgeError.
func GetCode(err error) string {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryFetch && code == CodeTransportFailed:
		return true
	case category == ErrCategorySource && code == CodeConnectFailed:
		return true
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *ForgeError {
	return New(ErrCategoryValidation, code, message)
}

func NewFetchError(code, message string, cause error) *ForgeError {
	return Wrap(ErrCategoryFetch, code, message, cause)
}

func NewSourceError(code, message string, cause error) *ForgeError {
	return Wrap(ErrCategorySource, code, message, cause)
}

func NewStorageError(code, message string, cause error) *ForgeError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewSnapshotError(code, message string, cause error) *ForgeError {
	return Wrap(ErrCategorySnapshot, code, message, cause)
}

func NewExportError(code, message string, cause error) *ForgeError {
	return Wrap(ErrCategoryExport, code, message, cause)
}

func NewInternalError(message string, cause error) *ForgeError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
