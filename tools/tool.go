package tools

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/schema"
	"github.com/invopop/jsonschema"
)

// HandlerFunc is a typed tool handler
type HandlerFunc[I any, O any] func(ctx context.Context, args *I) (O, error)

// Tool is an ITool with typed arguments and result
type Tool[I any, O any] struct {
	name        string
	description string
	schema      *schema.Schema
	handler     HandlerFunc[I, O]
}

// ensure Tool implements ITool
var _ ITool = (*Tool[struct{}, string])(nil)

// New returns a tool with the parameters schema reflected from I
func New[I any, O any](name, description string, handler HandlerFunc[I, O]) (*Tool[I, O], error) {
	if name == "" {
		return nil, errors.New("tool name is required")
	}
	if handler == nil {
		return nil, errors.Errorf("tool %s: handler is required", name)
	}

	sc, err := schema.New(reflect.TypeOf((*I)(nil)).Elem())
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s: failed to create schema", name)
	}

	return &Tool[I, O]{
		name:        name,
		description: description,
		schema:      sc,
		handler:     handler,
	}, nil
}

// Must panics if New failed, for static tool sets
func Must[I any, O any](t *Tool[I, O], err error) *Tool[I, O] {
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tool[I, O]) Name() string {
	return t.name
}

func (t *Tool[I, O]) Description() string {
	return t.description
}

func (t *Tool[I, O]) Parameters() *jsonschema.Schema {
	return t.schema.Parameters
}

// Run executes the handler with typed arguments
func (t *Tool[I, O]) Run(ctx context.Context, args *I) (O, error) {
	return t.handler(ctx, args)
}

// Invoke validates the raw arguments, decodes them and runs the handler
func (t *Tool[I, O]) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	if err := schema.Validate(t.schema.Parameters, raw); err != nil {
		return nil, errors.Mark(errors.WithMessagef(err, "tool %s", t.name), ErrInvalidArguments)
	}

	args := new(I)
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, args); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "tool %s: failed to decode arguments", t.name), ErrInvalidArguments)
		}
	}

	res, err := t.Run(ctx, args)
	if err != nil {
		return nil, errors.Mark(errors.WithMessagef(err, "tool %s", t.name), ErrHandler)
	}
	return res, nil
}
