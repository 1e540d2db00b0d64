package mcp

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/mcp/internal/protocol"
	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/mcpweather/tools"
)

var (
	// ErrNotInitialized is returned for tools requests received before initialize
	ErrNotInitialized = errors.New("server not initialized")
	// ErrInvalidParams is returned for malformed request params
	ErrInvalidParams = errors.New("invalid params")
)

// Kinds of tool errors, reported in the data of the JSON-RPC error
const (
	ErrorKindUnknownTool      = "unknown_tool"
	ErrorKindInvalidArguments = "invalid_arguments"
	ErrorKindHandlerError     = "handler_error"
)

// ErrorData is the data of the JSON-RPC error of a failed tool call
type ErrorData struct {
	Kind string `json:"kind"`
}

// toRPCError maps request errors to JSON-RPC errors,
// invocation errors never close the session
func toRPCError(err error) transport.BaseJSONRPCErrorInner {
	switch {
	case errors.Is(err, ErrNotInitialized):
		return transport.BaseJSONRPCErrorInner{
			Code:    transport.ErrorCodeNotInitialized,
			Message: ErrNotInitialized.Error(),
		}
	case errors.Is(err, ErrInvalidParams):
		return transport.BaseJSONRPCErrorInner{
			Code:    transport.ErrorCodeInvalidParams,
			Message: err.Error(),
		}
	case errors.Is(err, tools.ErrUnknownTool):
		return transport.BaseJSONRPCErrorInner{
			Code:    transport.ErrorCodeInvalidParams,
			Message: err.Error(),
			Data:    &ErrorData{Kind: ErrorKindUnknownTool},
		}
	case errors.Is(err, tools.ErrInvalidArguments):
		return transport.BaseJSONRPCErrorInner{
			Code:    transport.ErrorCodeInvalidParams,
			Message: err.Error(),
			Data:    &ErrorData{Kind: ErrorKindInvalidArguments},
		}
	case errors.Is(err, tools.ErrHandler):
		return transport.BaseJSONRPCErrorInner{
			Code:    transport.ErrorCodeInternal,
			Message: err.Error(),
			Data:    &ErrorData{Kind: ErrorKindHandlerError},
		}
	}
	return protocol.DefaultErrorMapper(err)
}
