package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/utils"
	"github.com/invopop/jsonschema"
)

var (
	// ErrUnknownTool is returned when the requested tool is not registered
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when the arguments do not match the tool schema
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrHandler is returned when the tool handler fails
	ErrHandler = errors.New("tool handler failed")
	// ErrDuplicateTool is returned when a tool name is registered twice
	ErrDuplicateTool = errors.New("duplicate tool")
)

// ITool is a named, schema-described operation exposed to a remote caller.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool.
	Description() string
	// Parameters returns the JSON schema of the tool arguments.
	Parameters() *jsonschema.Schema

	// Invoke validates raw JSON arguments, and executes the tool.
	// Returned errors are marked with ErrInvalidArguments or ErrHandler.
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// Description is the serializable description of a tool
type Description struct {
	Name        string `json:"Name" yaml:"Name" toml:"Name"`
	Description string `json:"Description" yaml:"Description" toml:"Description"`
	Parameters  any    `json:"Parameters,omitempty" yaml:"Parameters,omitempty" toml:"Parameters,omitempty"`
}

// Descriptions is the serializable description of a tool set
type Descriptions struct {
	Tools []Description `json:"Tools" yaml:"Tools" toml:"Tools"`
}

// Describe returns the descriptions of the tools
func Describe(list ...ITool) *Descriptions {
	d := new(Descriptions)
	for _, tool := range list {
		var params any
		// round trip through JSON, as the schema does not have yaml tags
		_ = json.Unmarshal([]byte(utils.ToJSON(tool.Parameters())), &params)
		d.Tools = append(d.Tools, Description{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  params,
		})
	}
	return d
}

// GetDescriptions returns YAML description of the tools
func GetDescriptions(list ...ITool) string {
	return utils.ToYAML(Describe(list...))
}
