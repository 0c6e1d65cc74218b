package errors

import (
	"fmt"
)

// CoreError is the structured error type for memcore.
// It provides rich context for error handling, logging, and user presentation.
type CoreError struct {
	// Code is the unique error code (e.g., "ERR_203_RECORD_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Index, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with CoreError.
func (e *CoreError) Is(target error) bool {
	if t, ok := target.(*CoreError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *CoreError) WithDetail(key, value string) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *CoreError) WithSuggestion(suggestion string) *CoreError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CoreError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *CoreError {
	return &CoreError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a CoreError from an existing error.
// The error's message becomes the CoreError message.
func Wrap(code string, err error) *CoreError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *CoreError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates a store-related error.
func StorageError(message string, cause error) *CoreError {
	return New(ErrCodeStoreOpen, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *CoreError {
	return New(ErrCodeInvalidInput, message, cause)
}

// ConfirmationRequired creates the error returned by destructive operations
// invoked without an explicit confirm flag. No mutation happens before it.
func ConfirmationRequired(operation string) *CoreError {
	return New(ErrCodeConfirmationMissing,
		fmt.Sprintf("%s is destructive and requires confirm=true", operation), nil).
		WithSuggestion("re-run with the confirm flag set to true")
}

// RecordNotFound creates an error for a missing record id.
func RecordNotFound(id string) *CoreError {
	return New(ErrCodeRecordNotFound, fmt.Sprintf("record %s not found", id), nil)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *CoreError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CoreError); ok {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a CoreError.
// Returns empty string if not a CoreError.
func GetCode(err error) string {
	if ce, ok := err.(*CoreError); ok {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a CoreError.
// Returns empty string if not a CoreError.
func GetCategory(err error) Category {
	if ce, ok := err.(*CoreError); ok {
		return ce.Category
	}
	return ""
}
