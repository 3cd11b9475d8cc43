// Package mcp implements the Model Context Protocol (MCP) server for wayfairmcp.
package mcp

import (
	"context"
	"errors"
	"fmt"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
)

// Custom MCP error codes for wayfairmcp.
const (
	// ErrCodeProductNotFound indicates the product id did not resolve.
	ErrCodeProductNotFound = -32001

	// ErrCodeCatalogUnavailable indicates the fallback catalog could not be read.
	ErrCodeCatalogUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeUpstreamUnavailable indicates the retailer site could not be used.
	ErrCodeUpstreamUnavailable = -32004

	// ErrCodeMetricsUnavailable indicates telemetry is disabled.
	ErrCodeMetricsUnavailable = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrResourceNotFound indicates the requested resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var we *wferrors.WayfairError
	if errors.As(err, &we) {
		return mapWayfairError(we)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid parameters.",
		}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Resource not found.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

// mapWayfairError converts a WayfairError to an MCPError.
func mapWayfairError(we *wferrors.WayfairError) *MCPError {
	message := we.Message
	if we.Suggestion != "" {
		message = fmt.Sprintf("%s %s", we.Message, we.Suggestion)
	}

	switch we.Category {
	case wferrors.CategoryConfig:
		if we.Code == wferrors.ErrCodeCatalogInvalid {
			return &MCPError{Code: ErrCodeCatalogUnavailable, Message: message}
		}
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	case wferrors.CategoryIO:
		return &MCPError{Code: ErrCodeCatalogUnavailable, Message: message}
	case wferrors.CategoryNetwork:
		if we.Code == wferrors.ErrCodeNetworkTimeout {
			return &MCPError{Code: ErrCodeTimeout, Message: message}
		}
		return &MCPError{Code: ErrCodeUpstreamUnavailable, Message: message}
	case wferrors.CategoryValidation:
		if we.Code == wferrors.ErrCodeProductNotFound {
			return &MCPError{Code: ErrCodeProductNotFound, Message: message}
		}
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
