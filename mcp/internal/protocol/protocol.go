// Package protocol implements the JSON-RPC framing on top of a pluggable transport.
//
// Inbound requests are queued and handled one at a time, in arrival order,
// by a single worker. The transport keeps reading while a request is being
// processed, so cancellation notifications and connection close are observed
// while a handler is blocked on I/O. Closing the connection cancels the
// context of every pending request. When the peer only stops sending,
// the queued requests are answered before the connection is closed.
package protocol

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather/mcp/internal", "protocol")

// DefaultQueueSize is the number of requests buffered ahead of the worker
const DefaultQueueSize = 64

// ErrMethodNotFound is returned for requests without a registered handler
var ErrMethodNotFound = errors.New("method not found")

// RequestHandlerExtra contains extra data given to request handlers
type RequestHandlerExtra struct {
	// Context used to communicate if the request was cancelled from the sender's side
	Context context.Context
}

// RequestHandler handles a request and returns the result to marshal into the response
type RequestHandler func(context.Context, *transport.BaseJSONRPCRequest, RequestHandlerExtra) (transport.JsonRpcBody, error)

// NotificationHandler handles a notification
type NotificationHandler func(notification *transport.BaseJSONRPCNotification) error

// ErrorMapper converts a handler error into the JSON-RPC error object
type ErrorMapper func(err error) transport.BaseJSONRPCErrorInner

// ProtocolOptions contains additional initialization options
type ProtocolOptions struct {
	// QueueSize is the number of inbound requests buffered ahead of the worker,
	// DefaultQueueSize if zero
	QueueSize int
	// ErrorMapper converts handler errors into JSON-RPC errors,
	// DefaultErrorMapper if nil
	ErrorMapper ErrorMapper
}

type inbound struct {
	ctx     context.Context
	cancel  context.CancelFunc
	request *transport.BaseJSONRPCRequest
}

// Protocol implements JSON-RPC request handling on top of a pluggable transport
type Protocol struct {
	transport   transport.Transport
	errorMapper ErrorMapper

	mu sync.RWMutex

	// Maps method name to request handler
	requestHandlers map[string]RequestHandler
	// Maps request ID to cancellation function
	requestCancellers map[transport.RequestId]context.CancelFunc
	// Maps method name to notification handler
	notificationHandlers map[string]NotificationHandler

	queue           chan *inbound
	done            chan struct{}
	closeOnce       sync.Once
	inputClosed     chan struct{}
	inputClosedOnce sync.Once

	// Callback for when the connection is closed for any reason
	OnClose func()
	// Callback for when an error occurs
	OnError func(error)
	// Handler to invoke for any request types that do not have their own handler installed
	FallbackRequestHandler func(ctx context.Context, request *transport.BaseJSONRPCRequest) (transport.JsonRpcBody, error)
	// Handler to invoke for any notification types that do not have their own handler installed
	FallbackNotificationHandler func(notification *transport.BaseJSONRPCNotification) error
}

// NewProtocol creates a new Protocol instance
func NewProtocol(options *ProtocolOptions) *Protocol {
	if options == nil {
		options = &ProtocolOptions{}
	}
	size := options.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	mapper := options.ErrorMapper
	if mapper == nil {
		mapper = DefaultErrorMapper
	}

	p := &Protocol{
		errorMapper:          mapper,
		requestHandlers:      make(map[string]RequestHandler),
		requestCancellers:    make(map[transport.RequestId]context.CancelFunc),
		notificationHandlers: make(map[string]NotificationHandler),
		queue:                make(chan *inbound, size),
		done:                 make(chan struct{}),
		inputClosed:          make(chan struct{}),
	}

	p.SetNotificationHandler("notifications/cancelled", p.handleCancelledNotification)

	return p
}

// DefaultErrorMapper maps ErrMethodNotFound to -32601 and everything else to -32603
func DefaultErrorMapper(err error) transport.BaseJSONRPCErrorInner {
	if errors.Is(err, ErrMethodNotFound) {
		return transport.BaseJSONRPCErrorInner{
			Code:    transport.ErrorCodeMethodNotFound,
			Message: err.Error(),
		}
	}
	return transport.BaseJSONRPCErrorInner{
		Code:    transport.ErrorCodeInternal,
		Message: err.Error(),
	}
}

// Connect attaches to the given transport, starts the worker and the transport
func (p *Protocol) Connect(ctx context.Context, tr transport.Transport) error {
	p.transport = tr

	tr.SetCloseHandler(func() {
		p.handleClose()
	})

	tr.SetErrorHandler(func(err error) {
		p.handleError(err)
	})

	if ic, ok := tr.(transport.InputCloser); ok {
		ic.SetInputClosedHandler(p.handleInputClosed)
	}

	tr.SetMessageHandler(func(ctx context.Context, message *transport.BaseJsonRpcMessage) {
		switch message.Type {
		case transport.BaseMessageTypeJSONRPCRequestType:
			p.handleRequest(ctx, message.JsonRpcRequest)
		case transport.BaseMessageTypeJSONRPCNotificationType:
			p.handleNotification(message.JsonRpcNotification)
		case transport.BaseMessageTypeJSONRPCResponseType, transport.BaseMessageTypeJSONRPCErrorType:
			// the server never issues requests
			logger.ContextKV(ctx, xlog.DEBUG, "reason", "unexpected_response", "id", message.MessageID())
		}
	})

	go p.serve()

	if err := tr.Start(ctx); err != nil {
		p.shutdown()
		return errors.Wrap(err, "failed to start transport")
	}
	return nil
}

// Done returns a channel that is closed when the connection is closed
func (p *Protocol) Done() <-chan struct{} {
	return p.done
}

// Close closes the connection
func (p *Protocol) Close() error {
	if p.transport != nil {
		return p.transport.Close()
	}
	p.shutdown()
	return nil
}

func (p *Protocol) serve() {
	for {
		select {
		case in := <-p.queue:
			p.process(in)
		case <-p.inputClosed:
			p.drain()
			return
		case <-p.done:
			return
		}
	}
}

// drain answers the requests read before the input was closed,
// then closes the connection
func (p *Protocol) drain() {
	for {
		select {
		case <-p.done:
			return
		case in := <-p.queue:
			p.process(in)
		default:
			logger.KV(xlog.DEBUG, "status", "drained")
			_ = p.Close()
			return
		}
	}
}

// handleInputClosed is called by the transport once the peer stops sending,
// after every request read so far was queued
func (p *Protocol) handleInputClosed() {
	p.inputClosedOnce.Do(func() {
		close(p.inputClosed)
	})
}

func (p *Protocol) shutdown() bool {
	closed := false
	p.closeOnce.Do(func() {
		closed = true
		close(p.done)

		p.mu.Lock()
		for id, cancel := range p.requestCancellers {
			cancel()
			delete(p.requestCancellers, id)
		}
		p.mu.Unlock()
	})
	return closed
}

func (p *Protocol) handleClose() {
	if !p.shutdown() {
		return
	}
	logger.KV(xlog.DEBUG, "status", "closed")
	if p.OnClose != nil {
		p.OnClose()
	}
}

func (p *Protocol) handleError(err error) {
	logger.KV(xlog.DEBUG, "err", err.Error())
	if p.OnError != nil {
		p.OnError(err)
	}
}

func (p *Protocol) handleNotification(notification *transport.BaseJSONRPCNotification) {
	logger.KV(xlog.DEBUG, "method", notification.Method)

	p.mu.RLock()
	handler := p.notificationHandlers[notification.Method]
	if handler == nil {
		handler = p.FallbackNotificationHandler
	}
	p.mu.RUnlock()

	if handler == nil {
		return
	}

	// notifications are handled inline, on the reader,
	// so a cancellation is applied before the next request is read
	if err := handler(notification); err != nil {
		p.handleError(errors.Wrap(err, "notification handler error"))
	}
}

func (p *Protocol) handleRequest(ctx context.Context, request *transport.BaseJSONRPCRequest) {
	logger.KV(xlog.DEBUG,
		"method", request.Method,
		"id", request.Id,
	)

	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	select {
	case <-p.done:
		p.mu.Unlock()
		cancel()
		return
	default:
	}
	p.requestCancellers[request.Id] = cancel
	p.mu.Unlock()

	select {
	case p.queue <- &inbound{ctx: ctx, cancel: cancel, request: request}:
	case <-p.done:
		cancel()
	}
}

func (p *Protocol) process(in *inbound) {
	request := in.request
	defer func() {
		p.mu.Lock()
		delete(p.requestCancellers, request.Id)
		p.mu.Unlock()
		in.cancel()
	}()

	p.mu.RLock()
	handler := p.requestHandlers[request.Method]
	p.mu.RUnlock()

	if handler == nil {
		handler = func(ctx context.Context, req *transport.BaseJSONRPCRequest, extra RequestHandlerExtra) (transport.JsonRpcBody, error) {
			if p.FallbackRequestHandler != nil {
				return p.FallbackRequestHandler(ctx, req)
			}
			return nil, errors.Mark(errors.Errorf("method not found: %s", req.Method), ErrMethodNotFound)
		}
	}

	ctx := in.ctx
	if err := ctx.Err(); err != nil {
		logger.KV(xlog.DEBUG, "method", request.Method, "id", request.Id, "reason", "cancelled_before_start")
		return
	}

	result, err := handler(ctx, request, RequestHandlerExtra{Context: ctx})
	if err != nil {
		logger.KV(xlog.DEBUG, "method", request.Method, "id", request.Id, "err", err.Error())
		p.sendErrorResponse(ctx, request.Id, err)
		return
	}

	jsonResult, err := json.Marshal(result)
	if err != nil {
		p.sendErrorResponse(ctx, request.Id, errors.Wrap(err, "failed to marshal result"))
		return
	}
	response := &transport.BaseJSONRPCResponse{
		Jsonrpc: transport.JSONRPCVersion,
		Id:      request.Id,
		Result:  jsonResult,
	}

	if err := p.transport.Send(ctx, transport.NewBaseMessageResponse(response)); err != nil {
		p.handleError(errors.Wrap(err, "failed to send response"))
	}
}

func (p *Protocol) handleCancelledNotification(notification *transport.BaseJSONRPCNotification) error {
	var params struct {
		RequestId transport.RequestId `json:"requestId"`
		Reason    string              `json:"reason"`
	}

	if err := json.Unmarshal(notification.Params, &params); err != nil {
		return errors.Wrap(err, "failed to unmarshal cancelled params")
	}

	p.mu.RLock()
	cancel := p.requestCancellers[params.RequestId]
	p.mu.RUnlock()

	if cancel != nil {
		logger.KV(xlog.DEBUG, "id", params.RequestId, "reason", params.Reason)
		cancel()
	}

	return nil
}

func (p *Protocol) sendErrorResponse(ctx context.Context, requestID transport.RequestId, err error) {
	response := &transport.BaseJSONRPCError{
		Jsonrpc: transport.JSONRPCVersion,
		Id:      requestID,
		Error:   p.errorMapper(err),
	}

	if err := p.transport.Send(ctx, transport.NewBaseMessageError(response)); err != nil {
		p.handleError(errors.Wrap(err, "failed to send error response"))
	}
}

// SetRequestHandler registers a handler to invoke when this protocol object receives a request with the given method
func (p *Protocol) SetRequestHandler(method string, handler RequestHandler) {
	p.mu.Lock()
	p.requestHandlers[method] = handler
	p.mu.Unlock()
}

// SetNotificationHandler registers a handler to invoke when this protocol object receives a notification with the given method
func (p *Protocol) SetNotificationHandler(method string, handler NotificationHandler) {
	p.mu.Lock()
	p.notificationHandlers[method] = handler
	p.mu.Unlock()
}
