// Package sse implements the server side of the HTTP with Server-Sent Events transport.
//
// The client opens a long lived GET stream, and receives an `endpoint` event
// with the URL to POST its messages to. Responses are sent back as `message`
// events on the stream.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather/mcp/transport", "sse")

// MaxMessageSize is the largest accepted POST body
const MaxMessageSize = 4 * 1024 * 1024

// SSEServerTransport is a transport of one SSE session
type SSEServerTransport struct {
	endpoint  string
	sessionID string
	writer    http.ResponseWriter
	flusher   http.Flusher

	mu             sync.RWMutex
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	ctx            context.Context

	// guards writes to the stream
	wmu       sync.Mutex
	started   bool
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

var _ transport.Transport = (*SSEServerTransport)(nil)

// NewSSEServerTransport returns a transport writing events to w,
// clients will be told to POST messages to endpoint
func NewSSEServerTransport(endpoint string, w http.ResponseWriter) (*SSEServerTransport, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}
	return &SSEServerTransport{
		endpoint:  endpoint,
		sessionID: uuid.NewString(),
		writer:    w,
		flusher:   flusher,
		done:      make(chan struct{}),
	}, nil
}

// SessionID returns the session identifier sent to the client
func (t *SSEServerTransport) SessionID() string {
	return t.sessionID
}

// Done returns a channel that is closed when the transport is closed
func (t *SSEServerTransport) Done() <-chan struct{} {
	return t.done
}

// Start writes the SSE headers and the endpoint event.
// The transport is closed when ctx is done.
func (t *SSEServerTransport) Start(ctx context.Context) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	if t.started {
		return errors.New("already started")
	}
	if t.closed {
		return transport.ErrClosed
	}

	h := t.writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	_, err := fmt.Fprintf(t.writer, "event: endpoint\ndata: %s?session=%s\n\n", t.endpoint, t.sessionID)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to write endpoint event"), transport.ErrConnection)
	}
	t.flusher.Flush()
	t.started = true

	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			logger.KV(xlog.DEBUG, "session", t.sessionID, "status", "disconnected")
			_ = t.Close()
		case <-t.done:
		}
	}()
	return nil
}

// HandlePostMessage handles a client message POSTed to the endpoint
func (t *SSEServerTransport) HandlePostMessage(r *http.Request) error {
	if r.Method != http.MethodPost {
		return errors.Errorf("method not allowed: %s", r.Method)
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.Errorf("unsupported Content type: %q", r.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxMessageSize+1))
	if err != nil {
		err = errors.Wrap(err, "failed to read request body")
		t.handleError(err)
		return err
	}
	if len(body) > MaxMessageSize {
		err = errors.Errorf("message exceeds %d bytes", MaxMessageSize)
		t.handleError(err)
		return err
	}

	msg, err := transport.ParseMessage(body)
	if err != nil {
		err = errors.WithMessage(err, "invalid message")
		t.handleError(err)
		return err
	}

	t.mu.RLock()
	handler := t.messageHandler
	ctx := t.ctx
	t.mu.RUnlock()

	if ctx == nil {
		// the response is delivered on the stream, not on this request
		ctx = context.WithoutCancel(r.Context())
	}
	if handler != nil {
		handler(ctx, msg)
	}
	return nil
}

// Send writes the message as a `message` event
func (t *SSEServerTransport) Send(_ context.Context, message *transport.BaseJsonRpcMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()

	if t.closed {
		return transport.ErrClosed
	}
	if !t.started {
		return errors.New("not connected")
	}

	if _, err = fmt.Fprintf(t.writer, "event: message\ndata: %s\n\n", data); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to write message"), transport.ErrConnection)
	}
	t.flusher.Flush()
	return nil
}

// Close stops writing to the stream, and calls the close handler once
func (t *SSEServerTransport) Close() error {
	t.closeOnce.Do(func() {
		t.wmu.Lock()
		t.closed = true
		t.wmu.Unlock()
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

func (t *SSEServerTransport) handleError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}

// SetCloseHandler implements Transport.SetCloseHandler
func (t *SSEServerTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

// SetErrorHandler implements Transport.SetErrorHandler
func (t *SSEServerTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

// SetMessageHandler implements Transport.SetMessageHandler
func (t *SSEServerTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}
