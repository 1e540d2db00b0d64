// Package localtransport implements an in-process transport,
// where each request is handed over as a call that returns its response.
package localtransport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather/mcp/transport", "localtransport")

// McpProxyRequest is a message received by a proxy, such as an HTTP handler
type McpProxyRequest struct {
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// McpProxyResponse is the reply to McpProxyRequest
type McpProxyResponse struct {
	Type    transport.BaseMessageType `json:"type"`
	Status  int                       `json:"status"`
	Body    []byte                    `json:"body"`
	Headers map[string]string         `json:"headers"`
}

// Transport correlates requests with responses sent by the protocol.
// Request ids are replaced with unique keys while in flight,
// so concurrent callers may reuse ids. Callers share one server session,
// the transport is stateless.
type Transport struct {
	mu             sync.RWMutex
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	responseMap    map[transport.RequestId]chan *transport.BaseJsonRpcMessage
	atomicCounter  atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

var (
	_ transport.Transport = (*Transport)(nil)
	_ transport.Stateless = (*Transport)(nil)
)

func New() *Transport {
	return &Transport{
		responseMap: make(map[transport.RequestId]chan *transport.BaseJsonRpcMessage),
		done:        make(chan struct{}),
	}
}

// Stateless implements transport.Stateless
func (t *Transport) Stateless() bool {
	return true
}

// Start does nothing in the local transport
func (t *Transport) Start(_ context.Context) error {
	return nil
}

// Close calls the close handler once, pending calls return transport.ErrClosed
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.RLock()
		handler := t.closeHandler
		t.mu.RUnlock()
		if handler != nil {
			handler()
		}
	})
	return nil
}

// SetCloseHandler implements Transport.SetCloseHandler
func (t *Transport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

// SetErrorHandler implements Transport.SetErrorHandler
func (t *Transport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

// SetMessageHandler implements Transport.SetMessageHandler
func (t *Transport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

// Send delivers a response or error to the pending HandleMessage call.
// Notifications have no back channel and are dropped.
func (t *Transport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	if message.Type == transport.BaseMessageTypeJSONRPCNotificationType {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "notification_dropped", "method", message.JsonRpcNotification.Method)
		return nil
	}

	key := message.MessageID()
	t.mu.RLock()
	ch := t.responseMap[key]
	t.mu.RUnlock()

	if ch == nil {
		return errors.Errorf("no response channel found for key: %s", key)
	}

	select {
	case ch <- message:
		return nil
	default:
		return errors.Errorf("response already sent for key: %s", key)
	}
}

// HandleMessage passes the message to the protocol, and waits for the response of a request.
// Returns nil message for notifications and responses.
func (t *Transport) HandleMessage(ctx context.Context, body []byte) (*transport.BaseJsonRpcMessage, error) {
	msg, err := transport.ParseMessage(body)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	handler := t.messageHandler
	t.mu.RUnlock()
	if handler == nil {
		return nil, errors.New("not connected")
	}

	select {
	case <-t.done:
		return nil, transport.ErrClosed
	default:
	}

	if msg.Type != transport.BaseMessageTypeJSONRPCRequestType {
		// the request id of a caller is not its in-flight key,
		// a caller stops its request by dropping the call context
		if msg.Type == transport.BaseMessageTypeJSONRPCNotificationType &&
			msg.JsonRpcNotification.Method == "notifications/cancelled" {
			logger.ContextKV(ctx, xlog.DEBUG, "reason", "cancel_ignored")
			return nil, nil
		}
		handler(ctx, msg)
		return nil, nil
	}

	key := transport.NumberID(t.atomicCounter.Add(1))
	ch := make(chan *transport.BaseJsonRpcMessage, 1)

	t.mu.Lock()
	t.responseMap[key] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.responseMap, key)
		t.mu.Unlock()
	}()

	prevID := msg.MessageID()
	msg.SetMessageID(key)
	handler(ctx, msg)

	select {
	case resp := <-ch:
		resp.SetMessageID(prevID)
		return resp, nil
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	case <-t.done:
		return nil, transport.ErrClosed
	}
}

// HandleMCP handles a proxied message, and returns the proxied response.
// Malformed messages are reported with 400 status,
// notifications and responses with 202 and no body.
func (t *Transport) HandleMCP(ctx context.Context, req *McpProxyRequest) (*McpProxyResponse, error) {
	resp, err := t.HandleMessage(ctx, req.Body)
	if err != nil {
		if errors.Is(err, transport.ErrParse) {
			t.handleError(err)
			return &McpProxyResponse{
				Status: http.StatusBadRequest,
				Body:   []byte(err.Error()),
				Headers: map[string]string{
					"Content-Type": "text/plain; charset=utf-8",
				},
			}, nil
		}
		return nil, err
	}

	if resp == nil {
		return &McpProxyResponse{
			Status: http.StatusAccepted,
		}, nil
	}

	js, err := json.Marshal(resp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal response")
	}
	return &McpProxyResponse{
		Type:   resp.Type,
		Status: http.StatusOK,
		Body:   js,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func (t *Transport) handleError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}
