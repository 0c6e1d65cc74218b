// Package mcp implements the Model Context Protocol server for memcore.
package mcp

import (
	"context"
	"errors"
	"fmt"

	coreerrors "github.com/substratelabs/memcore/internal/errors"
)

// Custom MCP error codes for memcore.
const (
	// ErrCodeRecordNotFound indicates the requested record does not exist.
	ErrCodeRecordNotFound = -32001

	// ErrCodeConfirmationRequired indicates a destructive tool was
	// called without confirm=true.
	ErrCodeConfirmationRequired = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
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

	var ce *coreerrors.CoreError
	if errors.As(err, &ce) {
		return mapCoreError(ce)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapCoreError converts a CoreError to an MCPError.
func mapCoreError(ce *coreerrors.CoreError) *MCPError {
	message := ce.Message
	if ce.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ce.Message, ce.Suggestion)
	}

	switch ce.Code {
	case coreerrors.ErrCodeRecordNotFound:
		return &MCPError{Code: ErrCodeRecordNotFound, Message: message}
	case coreerrors.ErrCodeConfirmationMissing:
		return &MCPError{Code: ErrCodeConfirmationRequired, Message: message}
	}

	switch ce.Category {
	case coreerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
