// Package errors provides structured error handling for wayfairmcp.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Network errors (retailer site)
//   - 4XX: Validation errors (queries, tool arguments)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates errors talking to the retailer site.
	CategoryNetwork Category = "NETWORK"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"
	ErrCodeCatalogInvalid   = "ERR_104_CATALOG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeBlocked            = "ERR_303_BLOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidQuery    = "ERR_401_INVALID_QUERY"
	ErrCodeInvalidInput    = "ERR_402_INVALID_INPUT"
	ErrCodeProductNotFound = "ERR_403_PRODUCT_NOT_FOUND"
	ErrCodeQueryTooLong    = "ERR_404_QUERY_TOO_LONG"
	ErrCodeTooManyProducts = "ERR_405_TOO_MANY_PRODUCTS"
	ErrCodeTooFewProducts  = "ERR_406_TOO_FEW_PRODUCTS"

	// Internal errors (500-599)
	ErrCodeInternal    = "ERR_501_INTERNAL"
	ErrCodeParseFailed = "ERR_502_PARSE_FAILED"
	ErrCodeNoMatch     = "ERR_503_NO_MATCH"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCatalogInvalid:
		return SeverityFatal
	}

	// Retryable network errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Blocked is not retryable: the site answered and refused.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable:
		return true
	default:
		return false
	}
}
