package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/invopop/jsonschema"
)

// Validate checks the raw JSON arguments against an object schema.
// Required fields, JSON types, enums and unknown fields are enforced.
// Empty or null arguments are treated as an empty object.
func Validate(s *jsonschema.Schema, raw json.RawMessage) error {
	var value any

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		value = map[string]any{}
	} else {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&value); err != nil {
			return errors.Wrap(err, "failed to parse arguments")
		}
	}

	if _, ok := value.(map[string]any); !ok {
		return errors.Errorf("arguments must be a JSON object, got %s", jsonType(value))
	}

	var violations []string
	validateValue(s, value, "", &violations)
	if len(violations) > 0 {
		return errors.New(strings.Join(violations, "; "))
	}
	return nil
}

func validateValue(s *jsonschema.Schema, value any, path string, violations *[]string) {
	if s == nil || s == jsonschema.TrueSchema {
		return
	}
	if s == jsonschema.FalseSchema {
		*violations = append(*violations, fmt.Sprintf("field %q: not allowed", path))
		return
	}

	if value == nil {
		if s.Type != "" && s.Type != "null" {
			*violations = append(*violations, fmt.Sprintf("field %q: expected %s, got null", path, s.Type))
		}
		return
	}

	if s.Type != "" && !matchesType(s.Type, value) {
		*violations = append(*violations, fmt.Sprintf("field %q: expected %s, got %s", values.StringsCoalesce(path, "arguments"), s.Type, jsonType(value)))
		return
	}

	if len(s.Enum) > 0 && !inEnum(s.Enum, value) {
		*violations = append(*violations, fmt.Sprintf("field %q: value %v is not one of %v", path, value, s.Enum))
		return
	}

	switch val := value.(type) {
	case map[string]any:
		for _, name := range s.Required {
			if _, ok := val[name]; !ok {
				*violations = append(*violations, fmt.Sprintf("missing required field %q", joinPath(path, name)))
			}
		}

		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		for _, k := range keys {
			var prop *jsonschema.Schema
			found := false
			if s.Properties != nil {
				prop, found = s.Properties.Get(k)
			}
			if !found {
				if s.AdditionalProperties == jsonschema.FalseSchema {
					*violations = append(*violations, fmt.Sprintf("unknown field %q", joinPath(path, k)))
				} else {
					validateValue(s.AdditionalProperties, val[k], joinPath(path, k), violations)
				}
				continue
			}
			if val[k] == nil && !slices.Contains(s.Required, k) {
				// null is accepted for optional fields
				continue
			}
			validateValue(prop, val[k], joinPath(path, k), violations)
		}
	case []any:
		for i, item := range val {
			validateValue(s.Items, item, fmt.Sprintf("%s[%d]", path, i), violations)
		}
	}
}

func matchesType(typ string, value any) bool {
	switch typ {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := value.(json.Number)
		return ok
	case "integer":
		n, ok := value.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case "null":
		return value == nil
	}
	// unknown types are not enforced
	return true
}

func jsonType(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return "integer"
		}
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func inEnum(enum []any, value any) bool {
	actual := fmt.Sprint(value)
	for _, e := range enum {
		if fmt.Sprint(e) == actual {
			return true
		}
	}
	return false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
