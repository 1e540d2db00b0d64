// Package transport defines the JSON-RPC message envelope and the Transport
// interface implemented by stdio, SSE, HTTP and in-process transports.
package transport

import (
	"context"

	"github.com/cockroachdb/errors"
)

// JSON-RPC error codes
const (
	ErrorCodeParse          = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternal       = -32603
	// ErrorCodeNotInitialized is returned for requests received before the handshake
	ErrorCodeNotInitialized = -32002
)

var (
	// ErrConnection marks fatal read or write failures of the underlying connection
	ErrConnection = errors.New("transport connection failed")
	// ErrParse marks messages that can not be decoded as JSON-RPC
	ErrParse = errors.New("JSON-RPC parse error")
	// ErrInvalidRequest marks valid JSON that is not a JSON-RPC message,
	// such messages are also marked with ErrParse
	ErrInvalidRequest = errors.New("JSON-RPC invalid request")
	// ErrClosed is returned when sending on a closed transport
	ErrClosed = errors.New("transport closed")
)

// Transport describes the minimal contract for a MCP transport
type Transport interface {
	// Start starts processing messages on the transport.
	// Start must not block beyond the time needed to establish the session.
	Start(ctx context.Context) error

	// Send sends a JSON-RPC message
	Send(ctx context.Context, message *BaseJsonRpcMessage) error

	// Close closes the connection
	Close() error

	// SetCloseHandler sets the callback for when the connection is closed for any reason
	SetCloseHandler(handler func())

	// SetErrorHandler sets the callback for when an error occurs.
	// Errors are not necessarily fatal.
	SetErrorHandler(handler func(error))

	// SetMessageHandler sets the callback for when a message is received
	SetMessageHandler(handler func(ctx context.Context, message *BaseJsonRpcMessage))
}

// InputCloser is implemented by transports where the peer can stop sending
// while replies can still be written, such as stdio when stdin reaches EOF.
// The handler is called instead of the close handler in that case,
// and the owner closes the transport once pending requests are answered.
type InputCloser interface {
	SetInputClosedHandler(handler func())
}

// Stateless is implemented by transports that carry independent requests
// of many clients over one session, so no per-client state can be kept
type Stateless interface {
	Stateless() bool
}
