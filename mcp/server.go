// Package mcp implements the tool dispatch server of the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/mcp/internal/protocol"
	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/mcpweather/pkg/metricskey"
	"github.com/effective-security/mcpweather/tools"
	"github.com/effective-security/mcpweather/utils"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather", "mcp")

const (
	DefaultServerName    = "mcpweather"
	DefaultServerVersion = "0.1.0"
)

type ServerOption func(*Server)

func WithName(name string) ServerOption {
	return func(s *Server) {
		s.name = name
	}
}

func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithInstructions sets the instructions returned on initialize
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// WithPaginationLimit enables tools/list pagination, zero disables it
func WithPaginationLimit(limit int) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.paginationLimit = &limit
		} else {
			s.paginationLimit = nil
		}
	}
}

// WithTransportName sets the transport tag of the session metrics
func WithTransportName(name string) ServerOption {
	return func(s *Server) {
		s.transportName = name
	}
}

// Server dispatches tools requests of one transport session
// to the tools of the registry.
type Server struct {
	transport       transport.Transport
	registry        *tools.Registry
	name            string
	version         string
	instructions    string
	transportName   string
	paginationLimit *int

	initialized atomic.Bool
	// stateless transports serve many clients, none of which owns the handshake
	stateless bool

	mu       sync.Mutex
	protocol *protocol.Protocol
}

// NewServer returns a server of the registry tools over the transport
func NewServer(tr transport.Transport, registry *tools.Registry, opts ...ServerOption) *Server {
	s := &Server{
		transport:     tr,
		registry:      registry,
		name:          DefaultServerName,
		version:       DefaultServerVersion,
		transportName: "unknown",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Info returns the server metadata reported on initialize
func (s *Server) Info() InitializeResult {
	return InitializeResult{
		ProtocolVersion: LatestProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: Implementation{
			Name:    s.name,
			Version: s.version,
		},
		Instructions: s.instructions,
	}
}

// Invoke calls the tool with raw JSON arguments.
// Errors are marked with tools.ErrUnknownTool, tools.ErrInvalidArguments or tools.ErrHandler.
func (s *Server) Invoke(ctx context.Context, name string, args json.RawMessage) (resp *ToolResponse, err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"tool", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			resp = nil
			err = errors.Mark(errors.Errorf("tool %s: internal error", name), tools.ErrHandler)
		}

		metricskey.PerfToolCall.MeasureSince(started, name)
		switch {
		case err == nil:
			metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
		case errors.Is(err, tools.ErrUnknownTool):
			metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		case errors.Is(err, tools.ErrInvalidArguments):
			metricskey.StatsToolCallsInvalidArguments.IncrCounter(1, name)
		default:
			metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		}

		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "tool", name, "err", err.Error())
		} else {
			logger.ContextKV(ctx, xlog.DEBUG, "tool", name, "elapsed", time.Since(started).String())
		}
	}()

	res, err := s.registry.Invoke(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return toToolResponse(name, res)
}

func toToolResponse(name string, res any) (*ToolResponse, error) {
	if r, ok := res.(*ToolResponse); ok {
		return r, nil
	}

	text, err := utils.Stringify(res)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "tool %s: failed to encode result", name), tools.ErrHandler)
	}

	resp := NewToolResponse(NewTextContent(text))
	if _, isString := res.(string); !isString && utils.IsJSONObject(text) {
		resp.StructuredContent = json.RawMessage(text)
	}
	return resp, nil
}

// Serve connects to the transport, and returns the session.
// Start errors of the transport are returned.
func (s *Server) Serve(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.protocol != nil {
		return nil, errors.New("server is already serving")
	}

	p := protocol.NewProtocol(&protocol.ProtocolOptions{
		ErrorMapper: toRPCError,
	})
	session := &Session{protocol: p}
	p.OnError = session.onError

	p.SetRequestHandler("initialize", s.handleInitialize)
	p.SetRequestHandler("ping", s.handlePing)
	p.SetRequestHandler("tools/list", s.handleListTools)
	p.SetRequestHandler("tools/call", s.handleToolCalls)
	p.SetNotificationHandler("notifications/initialized", func(*transport.BaseJSONRPCNotification) error {
		logger.KV(xlog.DEBUG, "status", "client_initialized")
		return nil
	})
	p.FallbackNotificationHandler = func(n *transport.BaseJSONRPCNotification) error {
		logger.KV(xlog.DEBUG, "reason", "notification_ignored", "method", n.Method)
		return nil
	}

	if st, ok := s.transport.(transport.Stateless); ok {
		s.stateless = st.Stateless()
	}

	if err := p.Connect(ctx, s.transport); err != nil {
		return nil, err
	}
	s.protocol = p

	metricskey.StatsSessionsStarted.IncrCounter(1, s.transportName)
	logger.ContextKV(ctx, xlog.INFO,
		"status", "serving",
		"server", s.name,
		"transport", s.transportName,
		"stateless", s.stateless,
		"tools", s.registry.Names(),
	)
	return session, nil
}

// ready reports if tools requests are accepted
func (s *Server) ready() bool {
	return s.stateless || s.initialized.Load()
}

func (s *Server) handleInitialize(ctx context.Context, req *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	var params InitializeRequest
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, err
	}

	res := s.Info()
	if slices.Contains(SupportedProtocolVersions, params.ProtocolVersion) {
		res.ProtocolVersion = params.ProtocolVersion
	}
	s.initialized.Store(true)

	client := Implementation{}
	if params.ClientInfo != nil {
		client = *params.ClientInfo
	}
	logger.ContextKV(ctx, xlog.INFO,
		"client", client.Name,
		"client_version", client.Version,
		"requested_version", params.ProtocolVersion,
		"protocol_version", res.ProtocolVersion,
	)
	return res, nil
}

func (s *Server) handlePing(_ context.Context, _ *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	return struct{}{}, nil
}

func (s *Server) handleListTools(_ context.Context, req *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	if !s.ready() {
		return nil, ErrNotInitialized
	}

	var params listToolsParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, err
	}

	list := s.registry.List()
	if params.Cursor != nil {
		after, err := base64.StdEncoding.DecodeString(*params.Cursor)
		if err != nil {
			return nil, errors.Mark(errors.Errorf("invalid cursor: %q", *params.Cursor), ErrInvalidParams)
		}
		// list is sorted by name
		idx, _ := slices.BinarySearchFunc(list, string(after), func(t tools.ITool, name string) int {
			switch {
			case t.Name() < name:
				return -1
			case t.Name() > name:
				return 1
			}
			return 0
		})
		if idx < len(list) && list[idx].Name() == string(after) {
			idx++
		}
		list = list[idx:]
	}

	var next *string
	if s.paginationLimit != nil && len(list) > *s.paginationLimit {
		list = list[:*s.paginationLimit]
		cursor := base64.StdEncoding.EncodeToString([]byte(list[len(list)-1].Name()))
		next = &cursor
	}

	res := ToolsResponse{
		Tools:      make([]ToolRetType, 0, len(list)),
		NextCursor: next,
	}
	for _, t := range list {
		res.Tools = append(res.Tools, ToolRetType{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		})
	}
	return res, nil
}

func (s *Server) handleToolCalls(ctx context.Context, req *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	if !s.ready() {
		return nil, ErrNotInitialized
	}

	var params toolCallParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, errors.Mark(errors.New("tool name is required"), ErrInvalidParams)
	}

	return s.Invoke(ctx, params.Name, params.Arguments)
}

func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to unmarshal params"), ErrInvalidParams)
	}
	return nil
}

// Session is a connected transport
type Session struct {
	protocol *protocol.Protocol

	mu  sync.Mutex
	err error
}

func (s *Session) onError(err error) {
	if errors.Is(err, transport.ErrConnection) {
		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
		logger.KV(xlog.ERROR, "err", err.Error())
		return
	}
	logger.KV(xlog.WARNING, "err", err.Error())
}

// Done returns a channel that is closed when the session is closed
func (s *Session) Done() <-chan struct{} {
	return s.protocol.Done()
}

// Wait blocks until the peer disconnects or the transport is closed.
// Returns nil on clean close, or the transport failure.
func (s *Session) Wait() error {
	<-s.protocol.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the transport, and cancels in-flight requests
func (s *Session) Close() error {
	return s.protocol.Close()
}
