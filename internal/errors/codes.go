// Package errors provides structured error handling for routenav.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO and cache errors
//   - 4XX: Input, pattern and parse errors
//   - 5XX: Internal errors
//
// None of the codes is fatal to the process. Components absorb these errors
// at their boundary, log them and degrade to stale or empty results.
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates stat, read, tree-walk and cache persistence errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates malformed queries and unparseable sources.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
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

	// IO errors (200-299)
	ErrCodeTransientIO    = "ERR_201_TRANSIENT_IO"
	ErrCodeFileNotFound   = "ERR_202_FILE_NOT_FOUND"
	ErrCodeCacheBusy      = "ERR_204_CACHE_BUSY"
	ErrCodeCacheCorrupt   = "ERR_205_CACHE_CORRUPT"
	ErrCodeWatcherFailure = "ERR_206_WATCHER_FAILURE"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodePatternCompile = "ERR_402_PATTERN_COMPILE"
	ErrCodeParseFailed    = "ERR_403_PARSE_FAILED"
	ErrCodeInvalidPath    = "ERR_406_INVALID_PATH"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeRefreshFailed = "ERR_505_REFRESH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Everything the index can degrade around is a warning.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeTransientIO, ErrCodeCacheBusy, ErrCodeCacheCorrupt,
		ErrCodePatternCompile, ErrCodeParseFailed:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeTransientIO, ErrCodeCacheBusy:
		return true
	default:
		return false
	}
}
