package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// Standard JSON-RPC error codes, plus a handful of gnosis-specific ones in
// the implementation-defined range below -32000.
const (
	rpcInvalidParams = -32602
	rpcInternalError = -32603
	rpcNotFound      = -32001
	rpcConflict      = -32002
	rpcForbidden     = -32003
	rpcTimeout       = -32004
	rpcUnavailable   = -32005
)

// ToolError is the error type every tool handler returns on failure. Its
// Code follows JSON-RPC error code conventions, with the underlying
// errorcode.Code preserved in Details for clients that want it.
type ToolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// mapError converts any error into a ToolError, deriving the JSON-RPC code
// from the error's errorcode.Category when it carries one.
func mapError(err error) *ToolError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ToolError{Code: rpcTimeout, Message: "request timed out or was canceled"}
	}

	code := errorcode.GetCode(err)
	rpcCode := rpcInternalError
	switch errorcode.GetCategory(err) {
	case errorcode.CategoryValidation:
		rpcCode = rpcInvalidParams
	case errorcode.CategoryNotFound, errorcode.CategoryPath:
		rpcCode = rpcNotFound
	case errorcode.CategoryConflict:
		rpcCode = rpcConflict
	case errorcode.CategoryAuth:
		rpcCode = rpcForbidden
	}
	if code == errorcode.CodeUnavailable || code == errorcode.CodeVecSearchUnavail {
		rpcCode = rpcUnavailable
	}
	return &ToolError{Code: rpcCode, Message: err.Error(), Details: code}
}
