package testingutils

import (
	"context"
	"sync"
	"time"

	"github.com/effective-security/mcpweather/mcp/transport"
)

// MockTransport is an in-memory transport that records sent messages
// and lets tests inject inbound ones
type MockTransport struct {
	mu sync.RWMutex

	// Callbacks
	onClose       func()
	onError       func(error)
	onMessage     func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	onInputClosed func()

	messages []*transport.BaseJsonRpcMessage
	sent     chan struct{}
	started  bool
	closed   bool
	startErr error
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		sent: make(chan struct{}, 1),
	}
}

// WithStartError makes Start fail with the given error
func (t *MockTransport) WithStartError(err error) *MockTransport {
	t.startErr = err
	return t
}

func (t *MockTransport) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startErr != nil {
		return t.startErr
	}
	t.started = true
	return nil
}

func (t *MockTransport) Send(_ context.Context, message *transport.BaseJsonRpcMessage) error {
	t.mu.Lock()
	t.messages = append(t.messages, message)
	t.mu.Unlock()
	select {
	case t.sent <- struct{}{}:
	default:
	}
	return nil
}

func (t *MockTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	onClose := t.onClose
	t.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

func (t *MockTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClose = handler
}

func (t *MockTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = handler
}

func (t *MockTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMessage = handler
}

func (t *MockTransport) SetInputClosedHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onInputClosed = handler
}

// CloseInput reports that the peer stopped sending,
// or closes the transport when no input closed handler is registered
func (t *MockTransport) CloseInput() {
	t.mu.RLock()
	handler := t.onInputClosed
	t.mu.RUnlock()
	if handler == nil {
		_ = t.Close()
		return
	}
	handler()
}

// Deliver passes an inbound message to the registered message handler
func (t *MockTransport) Deliver(ctx context.Context, message *transport.BaseJsonRpcMessage) {
	t.mu.RLock()
	handler := t.onMessage
	t.mu.RUnlock()
	if handler != nil {
		handler(ctx, message)
	}
}

// DeliverRaw parses body and passes it to the registered message handler
func (t *MockTransport) DeliverRaw(ctx context.Context, body string) error {
	msg, err := transport.ParseMessage([]byte(body))
	if err != nil {
		return err
	}
	t.Deliver(ctx, msg)
	return nil
}

// SimulateError passes err to the registered error handler
func (t *MockTransport) SimulateError(err error) {
	t.mu.RLock()
	handler := t.onError
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}

// GetMessages returns a copy of the sent messages
func (t *MockTransport) GetMessages() []*transport.BaseJsonRpcMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	messages := make([]*transport.BaseJsonRpcMessage, len(t.messages))
	copy(messages, t.messages)
	return messages
}

// WaitForMessages waits until at least n messages are sent or the timeout expires,
// and returns the sent messages
func (t *MockTransport) WaitForMessages(n int, timeout time.Duration) []*transport.BaseJsonRpcMessage {
	deadline := time.After(timeout)
	for {
		if msgs := t.GetMessages(); len(msgs) >= n {
			return msgs
		}
		select {
		case <-t.sent:
		case <-deadline:
			return t.GetMessages()
		}
	}
}

func (t *MockTransport) IsStarted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.started
}

func (t *MockTransport) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
