package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWayfairError_Unwrap_PreservesCause(t *testing.T) {
	// Given: a transport error
	cause := errors.New("connection reset")

	// When: wrapping it
	err := New(ErrCodeNetworkUnavailable, "retailer unreachable", cause)

	// Then: the cause is reachable through the chain
	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestWayfairError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config", ErrCodeConfigInvalid, "bad timeout", "[ERR_102_CONFIG_INVALID] bad timeout"},
		{"query", ErrCodeInvalidQuery, "limit must be positive", "[ERR_401_INVALID_QUERY] limit must be positive"},
		{"blocked", ErrCodeBlocked, "status 403", "[ERR_303_BLOCKED] status 403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestWayfairError_Is_MatchesByCode(t *testing.T) {
	a := QueryError("limit out of range", nil)
	b := QueryError("max_price negative", nil)
	c := NotFoundError("WF_SOFA_001")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestWayfairError_Is_ThroughFmtWrap(t *testing.T) {
	// Given: a structured error wrapped with fmt.Errorf
	wrapped := fmt.Errorf("cli: %w", QueryError("bad", nil))

	// Then: errors.As still finds it
	var we *WayfairError
	require.True(t, errors.As(wrapped, &we))
	assert.Equal(t, ErrCodeInvalidQuery, we.Code)
}

func TestNew_DerivesCategoryAndRetryability(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeCatalogInvalid, CategoryConfig, SeverityFatal, false},
		{ErrCodeFileNotFound, CategoryIO, SeverityError, false},
		{ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{ErrCodeNetworkUnavailable, CategoryNetwork, SeverityWarning, true},
		{ErrCodeBlocked, CategoryNetwork, SeverityError, false},
		{ErrCodeInvalidQuery, CategoryValidation, SeverityError, false},
		{ErrCodeParseFailed, CategoryInternal, SeverityError, false},
		{"BAD", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := NotFoundError("fallback:WF_BED_001").WithSuggestion("Search first to get product ids")

	assert.Equal(t, "fallback:WF_BED_001", err.Details["product_id"])
	assert.Equal(t, "Search first to get product ids", err.Suggestion)
}

func TestHelpers_OnPlainErrors(t *testing.T) {
	plain := errors.New("plain")

	assert.False(t, IsRetryable(plain))
	assert.False(t, IsFatal(plain))
	assert.False(t, IsRetryable(nil))
	assert.Empty(t, GetCode(plain))
	assert.Empty(t, GetCategory(plain))
	assert.True(t, IsFatal(New(ErrCodeCatalogInvalid, "broken catalog", nil)))
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	// Given: a structured error wrapped by fmt.Errorf
	err := fmt.Errorf("loading: %w", New(ErrCodeCatalogInvalid, "broken catalog", nil))

	// Then: the helpers still find it
	assert.True(t, IsFatal(err))
	assert.Equal(t, ErrCodeCatalogInvalid, GetCode(err))
	assert.Equal(t, CategoryConfig, GetCategory(err))
	assert.False(t, IsRetryable(err))
}

func TestFormatForCLI(t *testing.T) {
	err := QueryError("limit must be between 1 and 100", nil).WithSuggestion("Use --limit 10")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: limit must be between 1 and 100")
	assert.Contains(t, out, "Hint: Use --limit 10")
	assert.Contains(t, out, "Code: ERR_401_INVALID_QUERY")
	assert.Contains(t, FormatForCLI(errors.New("boom")), "ERR_501_INTERNAL")
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatForLog(t *testing.T) {
	attrs := FormatForLog(NotFoundError("X"))

	assert.Contains(t, attrs, "error_code")
	assert.Contains(t, attrs, ErrCodeProductNotFound)
	assert.Contains(t, attrs, "detail_product_id")
	assert.Equal(t, []any{"error", "plain"}, FormatForLog(errors.New("plain")))
	assert.Nil(t, FormatForLog(nil))
}
