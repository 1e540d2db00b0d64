package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Message string `json:"message" jsonschema:"description=the message to echo"`
	Repeat  int    `json:"repeat,omitempty" jsonschema:"description=number of repeats"`
}

func newEcho(t *testing.T, name string) *tools.Tool[echoArgs, string] {
	tool, err := tools.New(name, "Echo the message", func(_ context.Context, args *echoArgs) (string, error) {
		if args.Message == "fail" {
			return "", errors.New("echo failed")
		}
		res := ""
		for i := 0; i <= args.Repeat; i++ {
			res += args.Message
		}
		return res, nil
	})
	require.NoError(t, err)
	return tool
}

func TestTool(t *testing.T) {
	ctx := context.Background()
	tool := newEcho(t, "echo")

	assert.Equal(t, "echo", tool.Name())
	assert.Equal(t, "Echo the message", tool.Description())
	assert.Equal(t, []string{"message"}, tool.Parameters().Required)

	res, err := tool.Invoke(ctx, json.RawMessage(`{"message":"hi","repeat":1}`))
	require.NoError(t, err)
	assert.Equal(t, "hihi", res)

	out, err := tool.Run(ctx, &echoArgs{Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	_, err = tool.Invoke(ctx, json.RawMessage(`{"message":1}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrInvalidArguments))
	assert.EqualError(t, err, `tool echo: field "message": expected string, got integer`)

	_, err = tool.Invoke(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrInvalidArguments))
	assert.EqualError(t, err, `tool echo: missing required field "message"`)

	_, err = tool.Invoke(ctx, json.RawMessage(`{"message":"fail"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrHandler))
	assert.False(t, errors.Is(err, tools.ErrInvalidArguments))
	assert.EqualError(t, err, "tool echo: echo failed")
}

func TestNew_Errors(t *testing.T) {
	_, err := tools.New[echoArgs, string]("", "desc", func(context.Context, *echoArgs) (string, error) { return "", nil })
	assert.EqualError(t, err, "tool name is required")

	_, err = tools.New[echoArgs, string]("x", "desc", nil)
	assert.EqualError(t, err, "tool x: handler is required")

	_, err = tools.New[int, string]("x", "desc", func(context.Context, *int) (string, error) { return "", nil })
	assert.EqualError(t, err, "tool x: failed to create schema: schema: unsupported type int, expected struct")

	assert.Panics(t, func() {
		tool, err := tools.New[echoArgs, string]("", "desc", nil)
		tools.Must(tool, err)
	})
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	r, err := tools.NewRegistry(newEcho(t, "b-echo"), newEcho(t, "a-echo"))
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"a-echo", "b-echo"}, r.Names())
	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a-echo", list[0].Name())

	got, ok := r.Get("b-echo")
	require.True(t, ok)
	assert.Equal(t, "b-echo", got.Name())

	_, ok = r.Get("nonexistent_tool")
	assert.False(t, ok)

	res, err := r.Invoke(ctx, "a-echo", json.RawMessage(`{"message":"ok"}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", res)

	_, err = r.Invoke(ctx, "nonexistent_tool", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrUnknownTool))
	assert.EqualError(t, err, "unknown tool: nonexistent_tool")

	_, err = tools.NewRegistry(newEcho(t, "dup"), newEcho(t, "dup"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrDuplicateTool))
	assert.EqualError(t, err, "tool already registered: dup")

	_, err = tools.NewRegistry(nil)
	assert.EqualError(t, err, "tool must not be nil")
}

func TestGetDescriptions(t *testing.T) {
	d := tools.GetDescriptions(newEcho(t, "echo"))
	assert.Contains(t, d, "Name: echo\n")
	assert.Contains(t, d, "Description: Echo the message\n")
	assert.Contains(t, d, "the message to echo")
}

func TestDescribe(t *testing.T) {
	d := tools.Describe(newEcho(t, "echo"), newEcho(t, "echo2"))
	require.Len(t, d.Tools, 2)
	assert.Equal(t, "echo", d.Tools[0].Name)
	assert.Equal(t, "echo2", d.Tools[1].Name)

	params, ok := d.Tools[0].Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []any{"message"}, params["required"])

	assert.Empty(t, tools.Describe().Tools)
}
