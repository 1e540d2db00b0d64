package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/mcpweather/config"
	"github.com/effective-security/mcpweather/toolset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	cfg := config.Default()
	set, err := toolset.Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = set.Close() })

	mux, session, err := newMux(context.Background(), cfg, set)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (int, string) {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestMCPEndpoint(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + PathMCP

	status, body := post(t, url, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26"}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"protocolVersion":"2025-03-26"`)
	assert.Contains(t, body, `"instructions":"A simple calculator"`)

	status, body = post(t, url, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"sum","arguments":{"lhs":40,"rhs":2}}}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"result":{"content":[{"type":"text","text":"42"}]}}`, body)

	resp, err := http.Get(url)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSSEEndpoint(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+PathSSE, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	r := bufio.NewReader(resp.Body)
	name, data := readEvent(t, r)
	require.Equal(t, "endpoint", name)
	require.True(t, strings.HasPrefix(data, PathMessages+"?session="), data)

	status, _ := post(t, srv.URL+data, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.Equal(t, http.StatusAccepted, status)

	name, data = readEvent(t, r)
	assert.Equal(t, "message", name)
	assert.Contains(t, data, `"id":1`)
	assert.Contains(t, data, `"serverInfo":{"name":"mcpweather","version":"0.1.0"}`)

	status, _ = post(t, srv.URL+PathMessages+"?session=unknown", `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return name, data
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}
