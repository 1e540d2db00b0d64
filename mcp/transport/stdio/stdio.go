// Package stdio implements the newline delimited JSON-RPC transport over stdin/stdout.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather/mcp/transport", "stdio")

// MaxMessageSize is the largest accepted line
const MaxMessageSize = 4 * 1024 * 1024

// StdioTransport reads one JSON-RPC message per line from the reader,
// and writes one message per line to the writer.
type StdioTransport struct {
	reader io.Reader
	writer io.Writer

	mu                 sync.RWMutex
	messageHandler     func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler       func(error)
	closeHandler       func()
	inputClosedHandler func()
	started            bool

	wmu       sync.Mutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

var (
	_ transport.Transport   = (*StdioTransport)(nil)
	_ transport.InputCloser = (*StdioTransport)(nil)
)

// New returns a transport over the reader and writer, typically os.Stdin and os.Stdout
func New(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: r,
		writer: w,
		done:   make(chan struct{}),
	}
}

// Start starts reading messages in the background
func (t *StdioTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return errors.New("already started")
	}
	t.started = true
	t.mu.Unlock()

	go t.readLoop(ctx)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Close()
		case <-t.done:
		}
	}()
	return nil
}

func (t *StdioTransport) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)

	for scanner.Scan() {
		select {
		case <-t.done:
			return
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		// the scanner reuses its buffer
		body := bytes.Clone(line)
		msg, err := transport.ParseMessage(body)
		if err != nil {
			t.handleError(err)
			if err := t.Send(ctx, transport.NewParseErrorMessage(body, err)); err != nil {
				t.handleError(err)
			}
			continue
		}

		t.mu.RLock()
		handler := t.messageHandler
		t.mu.RUnlock()
		if handler != nil {
			handler(ctx, msg)
		}
	}

	if err := scanner.Err(); err != nil {
		t.handleError(errors.Mark(errors.Wrap(err, "failed to read message"), transport.ErrConnection))
		_ = t.Close()
		return
	}

	logger.KV(xlog.DEBUG, "status", "eof")
	t.mu.RLock()
	inputClosed := t.inputClosedHandler
	t.mu.RUnlock()
	if inputClosed == nil {
		_ = t.Close()
		return
	}
	// stdout stays open until the owner answered what was read
	inputClosed()
}

// Send writes the message followed by a new line
func (t *StdioTransport) Send(_ context.Context, message *transport.BaseJsonRpcMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}
	data = append(data, '\n')

	t.wmu.Lock()
	defer t.wmu.Unlock()
	if t.closed {
		return transport.ErrClosed
	}
	if _, err = t.writer.Write(data); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to write message"), transport.ErrConnection)
	}
	return nil
}

// Close stops sending and calls the close handler once.
// The reader is not closed, a blocked read returns on EOF.
func (t *StdioTransport) Close() error {
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

func (t *StdioTransport) handleError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	} else {
		logger.KV(xlog.ERROR, "err", err.Error())
	}
}

// SetCloseHandler implements Transport.SetCloseHandler
func (t *StdioTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

// SetErrorHandler implements Transport.SetErrorHandler
func (t *StdioTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

// SetInputClosedHandler implements transport.InputCloser
func (t *StdioTransport) SetInputClosedHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputClosedHandler = handler
}

// SetMessageHandler implements Transport.SetMessageHandler
func (t *StdioTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}
