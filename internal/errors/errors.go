package errors

import (
	"errors"
	"fmt"
)

// WayfairError is the structured error type for wayfairmcp.
// It carries enough context for logging, CLI output and MCP error mapping.
type WayfairError struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_QUERY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
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
func (e *WayfairError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *WayfairError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a WayfairError with the same code.
func (e *WayfairError) Is(target error) bool {
	if t, ok := target.(*WayfairError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *WayfairError) WithDetail(key, value string) *WayfairError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *WayfairError) WithSuggestion(suggestion string) *WayfairError {
	e.Suggestion = suggestion
	return e
}

// New creates a new WayfairError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *WayfairError {
	return &WayfairError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a WayfairError from an existing error.
func Wrap(code string, err error) *WayfairError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *WayfairError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// QueryError creates an error for a structurally invalid search query.
// It is the only error the search arbiter returns to its caller.
func QueryError(message string, cause error) *WayfairError {
	return New(ErrCodeInvalidQuery, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *WayfairError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *WayfairError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NotFoundError creates an error for an unknown product id.
func NotFoundError(id string) *WayfairError {
	return New(ErrCodeProductNotFound, fmt.Sprintf("product %q not found", id), nil).
		WithDetail("product_id", id)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *WayfairError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var we *WayfairError
	return errors.As(err, &we) && we.Retryable
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var we *WayfairError
	return errors.As(err, &we) && we.Severity == SeverityFatal
}

// GetCode extracts the error code from a WayfairError.
// Returns empty string if not a WayfairError.
func GetCode(err error) string {
	var we *WayfairError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// GetCategory extracts the category from a WayfairError.
func GetCategory(err error) Category {
	var we *WayfairError
	if errors.As(err, &we) {
		return we.Category
	}
	return ""
}
