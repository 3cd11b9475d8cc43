package errors

import (
	"errors"
	"fmt"
	"strings"
)

// asWayfair returns err as a WayfairError, wrapping plain errors as internal.
func asWayfair(err error) *WayfairError {
	var we *WayfairError
	if errors.As(err, &we) {
		return we
	}
	return Wrap(ErrCodeInternal, err)
}

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	we := asWayfair(err)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", we.Message)
	if we.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", we.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", we.Code)

	return sb.String()
}

// FormatForLog flattens an error into slog-friendly key-value pairs.
func FormatForLog(err error) []any {
	if err == nil {
		return nil
	}

	var we *WayfairError
	if !errors.As(err, &we) {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", we.Code,
		"message", we.Message,
		"category", string(we.Category),
		"retryable", we.Retryable,
	}
	if we.Cause != nil {
		attrs = append(attrs, "cause", we.Cause.Error())
	}
	for k, v := range we.Details {
		attrs = append(attrs, "detail_"+k, v)
	}

	return attrs
}
