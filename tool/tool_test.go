package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/core"
)

func testToolContext(t *testing.T, caller string, p core.RunParams) *core.ToolContext {
	t.Helper()
	if p.SessionID == "" {
		p.SessionID = "s1"
	}
	if p.UserID == "" {
		p.UserID = "u1"
	}
	rc := core.NewRunContext(context.Background(), p)
	tc := core.NewToolContext(rc, "call-1", caller)
	require.NoError(t, tc.Validate())
	return tc
}

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}
	sumTool := NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})

	result, err := sumTool.Call(testToolContext(t, "supervisor", core.RunParams{}), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "number"}},
		"required":   []any{"a"},
	}
	called := false
	tTool := NewFunctionTool("test", "Test", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		called = true
		return nil, nil
	})

	_, err := tTool.Call(testToolContext(t, "supervisor", core.RunParams{}), map[string]any{})
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, CodeValidation, CodeOf(err))

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	vErr, ok := toolErr.Details.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "a", vErr.Field)
}

func TestFunctionTool_ErrorCodes(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}

	plain := NewFunctionTool("fail", "Fails", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	_, err := plain.Call(testToolContext(t, "reader", core.RunParams{}), map[string]any{})
	assert.Equal(t, CodeExecution, CodeOf(err))

	coded := NewFunctionTool("coded", "Fails with code", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, NewToolError("coded", "empty", CodeQueueEmpty)
	})
	_, err = coded.Call(testToolContext(t, "reader", core.RunParams{}), map[string]any{})
	assert.Equal(t, CodeQueueEmpty, CodeOf(err))
	assert.Contains(t, err.Error(), "[QUEUE_EMPTY]")
}

func TestRegistry(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	noop := func(_ *core.ToolContext, _ map[string]any) (any, error) { return "ok", nil }

	r := NewRegistry(
		NewFunctionTool("b", "first b", params, noop),
		NewFunctionTool("a", "a", params, noop),
		NewFunctionTool("b", "second b", params, noop),
	)

	assert.Equal(t, []string{"b", "a"}, r.Names())
	b, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "second b", b.Description())

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "b", defs[0].Function.Name)

	var nilReg *Registry
	_, ok = nilReg.Get("a")
	assert.False(t, ok)
	assert.Nil(t, nilReg.Names())
}
