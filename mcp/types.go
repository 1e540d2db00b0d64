package mcp

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Protocol versions the server negotiates, latest last
const (
	ProtocolVersion20241105 = "2024-11-05"
	ProtocolVersion20250326 = "2025-03-26"
	ProtocolVersion20250618 = "2025-06-18"

	LatestProtocolVersion = ProtocolVersion20250618
)

// SupportedProtocolVersions are echoed back to the client on initialize
var SupportedProtocolVersions = []string{
	ProtocolVersion20241105,
	ProtocolVersion20250326,
	ProtocolVersion20250618,
}

// Implementation describes the client or the server
type Implementation struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

type InitializeRequest struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ClientInfo      *Implementation `json:"clientInfo,omitempty"`
}

// ToolsCapability is present if the server offers tools
type ToolsCapability struct {
	// ListChanged is always false, the registry is immutable
	ListChanged bool `json:"listChanged,omitempty" yaml:"list_changed,omitempty"`
}

// ServerCapabilities only declares tools
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty" yaml:"tools,omitempty"`
}

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion" yaml:"protocol_version"`
	Capabilities    ServerCapabilities `json:"capabilities" yaml:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo" yaml:"server_info"`
	Instructions    string             `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// ToolRetType is a tool as listed by tools/list
type ToolRetType struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

type ToolsResponse struct {
	Tools      []ToolRetType `json:"tools"`
	NextCursor *string       `json:"nextCursor,omitempty"`
}

type listToolsParams struct {
	Cursor *string `json:"cursor,omitempty"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}
