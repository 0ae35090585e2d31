package errors

import (
	stderrors "errors"
	"fmt"
)

// RouteNavError is the structured error type for routenav.
type RouteNavError struct {
	// Code is the unique error code (e.g., "ERR_403_PARSE_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *RouteNavError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RouteNavError) Unwrap() error {
	return e.Cause
}

// Is matches another RouteNavError by code, so errors.Is works against
// the sentinel values below.
func (e *RouteNavError) Is(target error) bool {
	if t, ok := target.(*RouteNavError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *RouteNavError) WithDetail(key, value string) *RouteNavError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *RouteNavError) WithSuggestion(suggestion string) *RouteNavError {
	e.Suggestion = suggestion
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrTransientIO    = &RouteNavError{Code: ErrCodeTransientIO}
	ErrCacheCorrupt   = &RouteNavError{Code: ErrCodeCacheCorrupt}
	ErrPatternCompile = &RouteNavError{Code: ErrCodePatternCompile}
	ErrParseFailed    = &RouteNavError{Code: ErrCodeParseFailed}
	ErrInvalidInput   = &RouteNavError{Code: ErrCodeInvalidInput}
)

// New creates a new RouteNavError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *RouteNavError {
	return &RouteNavError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RouteNavError from an existing error.
func Wrap(code string, err error) *RouteNavError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RouteNavError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// TransientIOError creates an error for a stat, read or walk failure.
func TransientIOError(path string, cause error) *RouteNavError {
	return New(ErrCodeTransientIO, "io failure", cause).WithDetail("path", path)
}

// ParseError creates an error for a route source that could not be parsed.
func ParseError(path string, cause error) *RouteNavError {
	return New(ErrCodeParseFailed, "route extraction failed", cause).WithDetail("path", path)
}

// PatternError creates an error for a wildcard query that did not compile.
func PatternError(pattern string, cause error) *RouteNavError {
	return New(ErrCodePatternCompile, "invalid wildcard pattern", cause).WithDetail("pattern", pattern)
}

// CacheCorruptError creates an error for a persisted snapshot that cannot be decoded.
func CacheCorruptError(key string, cause error) *RouteNavError {
	return New(ErrCodeCacheCorrupt, "cache snapshot unreadable", cause).
		WithDetail("key", key).
		WithSuggestion("Run 'routenav clear-cache' to drop the snapshot")
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *RouteNavError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *RouteNavError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable anywhere in its chain.
func IsRetryable(err error) bool {
	var re *RouteNavError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// GetCode extracts the error code from the first RouteNavError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var re *RouteNavError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from the first RouteNavError in the chain.
func GetCategory(err error) Category {
	var re *RouteNavError
	if stderrors.As(err, &re) {
		return re.Category
	}
	return ""
}
