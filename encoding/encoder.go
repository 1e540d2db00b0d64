// Package encoding provides the output encoders of the command line tools.
package encoding

import (
	"strings"

	"github.com/cockroachdb/errors"
	jsonenc "github.com/effective-security/mcpweather/encoding/json"
	textenc "github.com/effective-security/mcpweather/encoding/text"
	tomlenc "github.com/effective-security/mcpweather/encoding/toml"
	yamlenc "github.com/effective-security/mcpweather/encoding/yaml"
)

type Encoder interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, ret any) error
}

type Validator interface {
	Validate(any) error
}

type Mode = string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
	ModeYAML Mode = "yaml"
	ModeTOML Mode = "toml"
)

// Modes lists the supported output formats
var Modes = []Mode{ModeText, ModeJSON, ModeYAML, ModeTOML}

// NewEncoder returns the encoder of the output format
func NewEncoder(mode Mode) (Encoder, error) {
	switch strings.ToLower(mode) {
	case ModeText:
		return textenc.NewEncoder(), nil
	case ModeJSON:
		return jsonenc.NewEncoder(), nil
	case ModeYAML:
		return yamlenc.NewEncoder(), nil
	case ModeTOML:
		return tomlenc.NewEncoder(), nil
	}
	return nil, errors.Errorf("unsupported output format: %q", mode)
}

var (
	_ Encoder = (*textenc.Encoder)(nil)
	_ Encoder = (*jsonenc.Encoder)(nil)
	_ Encoder = (*tomlenc.Encoder)(nil)
	_ Encoder = (*yamlenc.Encoder)(nil)

	_ Validator = (*jsonenc.Encoder)(nil)
	_ Validator = (*tomlenc.Encoder)(nil)
	_ Validator = (*yamlenc.Encoder)(nil)
)
