package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var re *RouteNavError
	if !stderrors.As(err, &re) {
		re = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", re.Message))
	if re.Cause != nil && re.Cause.Error() != re.Message {
		sb.WriteString(fmt.Sprintf("  Cause: %v\n", re.Cause))
	}
	if re.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", re.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", re.Code))

	return sb.String()
}

// LogAttrs returns slog attributes describing err, for use as
// slog.Warn("event", errors.LogAttrs(err)...).
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var re *RouteNavError
	if !stderrors.As(err, &re) {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", re.Code),
		slog.String("error", re.Message),
		slog.String("category", string(re.Category)),
	}
	if re.Cause != nil {
		attrs = append(attrs, slog.String("cause", re.Cause.Error()))
	}
	for k, v := range re.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}
