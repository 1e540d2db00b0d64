package tools

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/cockroachdb/errors"
)

// Registry is an immutable mapping from tool name to tool.
// It is built once at startup and is safe for concurrent use.
type Registry struct {
	tools map[string]ITool
	names []string
}

// NewRegistry returns a registry with the given tools,
// or ErrDuplicateTool if a name is used more than once
func NewRegistry(list ...ITool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]ITool, len(list)),
		names: make([]string, 0, len(list)),
	}
	for _, t := range list {
		if t == nil {
			return nil, errors.New("tool must not be nil")
		}
		name := t.Name()
		if _, ok := r.tools[name]; ok {
			return nil, errors.Mark(errors.Errorf("tool already registered: %s", name), ErrDuplicateTool)
		}
		r.tools[name] = t
		r.names = append(r.names, name)
	}
	slices.Sort(r.names)
	return r, nil
}

// Get returns the tool by name
func (r *Registry) Get(name string) (ITool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the sorted tool names
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// List returns the tools sorted by name
func (r *Registry) List() []ITool {
	list := make([]ITool, 0, len(r.names))
	for _, name := range r.names {
		list = append(list, r.tools[name])
	}
	return list
}

// Len returns the number of tools
func (r *Registry) Len() int {
	return len(r.names)
}

// Invoke looks up the tool by name and invokes it with the raw arguments
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, errors.Mark(errors.Errorf("unknown tool: %s", name), ErrUnknownTool)
	}
	return t.Invoke(ctx, args)
}
