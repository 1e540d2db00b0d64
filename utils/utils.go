package utils

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

func JSONIndent(body string) string {
	var buf bytes.Buffer
	_ = json.Indent(&buf, []byte(body), "", "\t")
	return buf.String()
}

func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

type Stringer interface {
	String() string
}

// Stringify returns strings as is, Stringer values via String(),
// and anything else as compact JSON
func Stringify(s any) (string, error) {
	switch v := s.(type) {
	case string:
		return v, nil
	case Stringer:
		return v.String(), nil
	}
	js, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(js)), nil
}

// IsJSONObject returns true if the value marshals to a JSON object
func IsJSONObject(js string) bool {
	return strings.HasPrefix(strings.TrimSpace(js), "{")
}
