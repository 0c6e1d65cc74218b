// Package errors provides structured error handling for memcore.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (SQLite, index tables)
//   - 3XX: Index maintenance errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates record and index store errors.
	CategoryStorage Category = "STORAGE"
	// CategoryIndex indicates index build and rebuild errors.
	CategoryIndex Category = "INDEX"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStoreOpen      = "ERR_201_STORE_OPEN"
	ErrCodeStoreCorrupt   = "ERR_202_STORE_CORRUPT"
	ErrCodeRecordNotFound = "ERR_203_RECORD_NOT_FOUND"
	ErrCodeStoreLocked    = "ERR_204_STORE_LOCKED"

	// Index errors (300-399)
	ErrCodeIndexBuild    = "ERR_301_INDEX_BUILD"
	ErrCodeIndexRebuild  = "ERR_302_INDEX_REBUILD"
	ErrCodeVectorCorrupt = "ERR_303_VECTOR_CORRUPT"

	// Validation errors (400-499)
	ErrCodeInvalidInput        = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty          = "ERR_402_QUERY_EMPTY"
	ErrCodeUnknownStrategy     = "ERR_403_UNKNOWN_STRATEGY"
	ErrCodeConfirmationMissing = "ERR_404_CONFIRMATION_REQUIRED"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
	ErrCodeCacheFailed  = "ERR_503_CACHE_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract the leading digit (e.g., '1' from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryIndex
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreCorrupt:
		return SeverityFatal
	case ErrCodeIndexBuild, ErrCodeVectorCorrupt, ErrCodeCacheFailed:
		// Index staleness and cache failures degrade search quality
		// but never fail the triggering operation.
		return SeverityWarning
	default:
		return SeverityError
	}
}
