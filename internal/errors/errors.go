// Package errors provides structured error types for the rowforge pipeline.
// All errors include a category, code, message and optional details for
// consistent classification across components.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies errors by pipeline component.
type Category string

const (
	CategorySchema    Category = "SCHEMA"
	CategoryIntegrity Category = "INTEGRITY"
	CategoryExport    Category = "EXPORT"
	CategoryStorage   Category = "STORAGE"
	CategoryConfig    Category = "CONFIG"
	CategoryInternal  Category = "INTERNAL"
)

// Error codes for each category.
const (
	// Schema codes
	CodeSchemaViolation   = "SCHEMA_VIOLATION"
	CodeInvalidDescriptor = "INVALID_DESCRIPTOR"

	// Integrity codes
	CodeMissingParent = "MISSING_PARENT"

	// Export codes
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeWriteFailed       = "WRITE_FAILED"

	// Storage codes
	CodeUploadFailed = "UPLOAD_FAILED"

	// Config codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Error is the structured error type used throughout the pipeline.
type Error struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new Error.
func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(category Category, code, format string, args ...interface{}) *Error {
	return &Error{Category: category, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category Category, code, message string, cause error) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: cause}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// IsSchemaViolation reports whether err (or its chain) is a fatal schema
// violation: a value that does not conform to its declared or inferred shape,
// or a post-flatten invariant failure.
func IsSchemaViolation(err error) bool {
	return is(err, CategorySchema, CodeSchemaViolation)
}

// IsIntegrityViolation reports whether err (or its chain) is a referential
// integrity violation: a hydrated child key with no matching parent entity.
func IsIntegrityViolation(err error) bool {
	return is(err, CategoryIntegrity, CodeMissingParent)
}

func is(err error, category Category, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == category && e.Code == code
	}
	return false
}
