package mcp

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

type ContentType string

const (
	// ContentTypeText is a text content block
	ContentTypeText ContentType = "text"
)

// TextContent is the payload of a text content block
type TextContent struct {
	Text string `json:"text" yaml:"text"`
}

// Content is a block of a tool result
type Content struct {
	Type        ContentType
	TextContent *TextContent
}

// MarshalJSON flattens the payload into the block: {"type":"text","text":"..."}
func (c *Content) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case ContentTypeText:
		if c.TextContent == nil {
			return nil, errors.New("text content is nil")
		}
		return json.Marshal(struct {
			Type ContentType `json:"type"`
			Text string      `json:"text"`
		}{
			Type: c.Type,
			Text: c.TextContent.Text,
		})
	default:
		return nil, errors.Errorf("unknown content type: %q", c.Type)
	}
}

// UnmarshalJSON decodes a text block
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type ContentType `json:"type"`
		Text *string     `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != ContentTypeText {
		return errors.Errorf("unknown content type: %q", raw.Type)
	}
	if raw.Text == nil {
		return errors.New("field text in Content: required")
	}
	*c = Content{Type: raw.Type, TextContent: &TextContent{Text: *raw.Text}}
	return nil
}

func NewTextContent(text string) *Content {
	return &Content{
		Type:        ContentTypeText,
		TextContent: &TextContent{Text: text},
	}
}

// ToolResponse is the result of tools/call
type ToolResponse struct {
	Content []*Content `json:"content"`
	// StructuredContent is set when the tool returns a JSON object
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

func NewToolResponse(content ...*Content) *ToolResponse {
	if content == nil {
		content = []*Content{}
	}
	return &ToolResponse{
		Content: content,
	}
}
