// Package httptransport implements a stateless HTTP transport:
// each POST carries one JSON-RPC message, and the response is the body of the reply.
package httptransport

import (
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/mcp/transport/localtransport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather/mcp/transport", "httptransport")

// MaxMessageSize is the largest accepted request body
const MaxMessageSize = 4 * 1024 * 1024

// HTTPTransport is a transport and an http.Handler to mount on the MCP endpoint
type HTTPTransport struct {
	*localtransport.Transport
}

// NewHTTPTransport returns the transport, the caller mounts it on a mux
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		Transport: localtransport.New(),
	}
}

// ServeHTTP implements http.Handler
func (t *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is supported", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxMessageSize+1))
	if err != nil {
		http.Error(w, errors.Wrap(err, "failed to read request body").Error(), http.StatusBadRequest)
		return
	}
	if len(body) > MaxMessageSize {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	resp, err := t.HandleMCP(ctx, &localtransport.McpProxyRequest{
		Body:    body,
		Headers: headers,
	})
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "err", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
