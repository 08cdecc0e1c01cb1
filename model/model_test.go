package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/core"
)

func TestMockModel_ScriptedReplies(t *testing.T) {
	m := NewMockModel("mock").
		EnqueueToolCall("get_learning_content", "{}").
		EnqueueText("Moien!")

	ctx := context.Background()
	req := Request{Instructions: "be nice", Contents: []core.Content{{Role: "user", Parts: []core.Part{core.TextPart{Text: "hi"}}}}}

	c, err := Collect(ctx, m, req)
	require.NoError(t, err)
	require.Len(t, c.Parts, 1)
	call, ok := c.Parts[0].(core.ToolCallPart)
	require.True(t, ok)
	assert.Equal(t, "get_learning_content", call.ToolCall.Name)

	c, err = Collect(ctx, m, req)
	require.NoError(t, err)
	assert.Equal(t, "Moien!", c.Parts[0].(core.TextPart).Text)

	_, err = Collect(ctx, m, req)
	assert.ErrorIs(t, err, ErrScriptExhausted)

	assert.Len(t, m.Calls(), 3)
	assert.Equal(t, "be nice", m.Calls()[0].Instructions)
	assert.Zero(t, m.Pending())
}

func TestMockModel_ErrorAndFallback(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockModel("mock").EnqueueError(boom).SetFallbackText("ok")

	_, err := Collect(context.Background(), m, Request{})
	assert.ErrorIs(t, err, boom)

	c, err := Collect(context.Background(), m, Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", c.Parts[0].(core.TextPart).Text)
}

func TestRateLimited_RespectsContext(t *testing.T) {
	inner := NewMockModel("mock").SetFallbackText("x")
	m := NewRateLimited(inner, 0.001, 1)

	_, err := Collect(context.Background(), m, Request{})
	require.NoError(t, err, "first call consumes the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = Collect(ctx, m, Request{})
	assert.Error(t, err)
	assert.Equal(t, "mock", m.Info().Name)
}

func TestNewRateLimited_DisabledReturnsInner(t *testing.T) {
	inner := NewMockModel("mock")
	assert.Same(t, inner, NewRateLimited(inner, 0, 0))
}

func TestResultText(t *testing.T) {
	assert.Equal(t, "reader lesson: text1", ResultText(core.ToolResult{Response: "reader lesson: text1"}))
	assert.JSONEq(t, `{"ok":true}`, ResultText(core.ToolResult{Response: map[string]any{"ok": true}}))
	assert.JSONEq(t, `{"error":"empty","code":"QUEUE_EMPTY"}`, ResultText(core.ToolResult{Error: "empty", Code: "QUEUE_EMPTY"}))
	assert.Empty(t, ResultText(core.ToolResult{}))
}
