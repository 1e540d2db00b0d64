// Package tools defines the ITool interface, the generic typed Tool with a
// reflected parameter schema, and the immutable Registry used by the MCP server
// to look up and invoke tools by name.
package tools
