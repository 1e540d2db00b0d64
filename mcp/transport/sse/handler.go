package sse

import (
	"context"
	"net/http"
	"sync"

	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/xlog"
)

// ServeFunc serves one session over the transport,
// and blocks until the session is closed
type ServeFunc func(ctx context.Context, tr transport.Transport) error

// Handler serves many concurrent SSE sessions:
// ServeSSE opens the event stream, and ServeMessages receives the client messages.
type Handler struct {
	endpoint string
	serve    ServeFunc
	sessions sync.Map
}

// NewHandler returns a handler, endpoint is the path ServeMessages is mounted on
func NewHandler(endpoint string, serve ServeFunc) *Handler {
	return &Handler{
		endpoint: endpoint,
		serve:    serve,
	}
}

// ServeSSE opens the event stream of a new session
func (h *Handler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tr, err := NewSSEServerTransport(h.endpoint, w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	id := tr.SessionID()
	h.sessions.Store(id, tr)
	defer h.sessions.Delete(id)

	logger.ContextKV(ctx, xlog.DEBUG, "session", id, "status", "opened")
	if err = h.serve(ctx, tr); err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "session", id, "err", err.Error())
	}
	_ = tr.Close()
	logger.ContextKV(ctx, xlog.DEBUG, "session", id, "status", "closed")
}

// ServeMessages receives a client message of the session in the `session` query parameter
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "missing session", http.StatusBadRequest)
		return
	}
	v, ok := h.sessions.Load(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if err := v.(*SSEServerTransport).HandlePostMessage(r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Sessions returns the number of open sessions
func (h *Handler) Sessions() int {
	n := 0
	h.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
