package sse_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/mcpweather/mcp/transport/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo answers every request with its method name
func echo(ctx context.Context, tr transport.Transport) error {
	done := make(chan struct{})
	tr.SetCloseHandler(func() { close(done) })
	tr.SetMessageHandler(func(ctx context.Context, m *transport.BaseJsonRpcMessage) {
		if m.Type != transport.BaseMessageTypeJSONRPCRequestType {
			return
		}
		_ = tr.Send(ctx, transport.NewBaseMessageResponse(&transport.BaseJSONRPCResponse{
			Jsonrpc: transport.JSONRPCVersion,
			Id:      m.JsonRpcRequest.Id,
			Result:  []byte(`"` + m.JsonRpcRequest.Method + `"`),
		}))
	})
	if err := tr.Start(ctx); err != nil {
		return err
	}
	<-done
	return nil
}

type event struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) event {
	var ev event
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestHandler(t *testing.T) {
	h := sse.NewHandler("/messages", echo)
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", h.ServeSSE)
	mux.HandleFunc("/messages", h.ServeMessages)
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := bufio.NewReader(resp.Body)
	ev := readEvent(t, stream)
	assert.Equal(t, "endpoint", ev.name)
	require.True(t, strings.HasPrefix(ev.data, "/messages?session="), ev.data)
	endpoint := ev.data
	assert.Equal(t, 1, h.Sessions())

	post := func(path, body string) *http.Response {
		r, err := server.Client().Post(server.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		_ = r.Body.Close()
		return r
	}

	r := post(endpoint, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusAccepted, r.StatusCode)

	ev = readEvent(t, stream)
	assert.Equal(t, "message", ev.name)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":"ping"}`, ev.data)

	assert.Equal(t, http.StatusBadRequest, post(endpoint, `{}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post("/messages", `{"jsonrpc":"2.0","id":1,"method":"ping"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound, post("/messages?session=unknown", `{"jsonrpc":"2.0","id":1,"method":"ping"}`).StatusCode)

	r, err = server.Client().Post(server.URL+"/sse", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = r.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, r.StatusCode)

	// client disconnect closes the session
	cancel()
	assert.Eventually(t, func() bool {
		return h.Sessions() == 0
	}, time.Second, 10*time.Millisecond)
}
