package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"reader":             RoleReader,
		" conversational ":   RoleConversational,
		"question Answering": RoleQuestionAnswering,
		"listening":          RoleListener,
		"GrammarSummary":     RoleGrammarSummary,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRole("singer")
	assert.True(t, errors.Is(err, ErrUnknownRole))
}

func TestRolesAreValid(t *testing.T) {
	assert.Len(t, Roles(), 5)
	for _, r := range Roles() {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("tool").Valid())
}

func TestMessage_ToolCallsAndResults(t *testing.T) {
	m := NewToolCallMessage(WorkerSpeaker(RoleReader), "reader", "fetching",
		ToolCall{Name: "get_learning_content", Arguments: "{}"},
		ToolCall{ID: "fixed", Name: "create_progress_report"},
	)
	calls := m.ToolCalls()
	if assert.Len(t, calls, 2) {
		assert.NotEmpty(t, calls[0].ID)
		assert.Equal(t, "fixed", calls[1].ID)
	}
	assert.Equal(t, "fetching", m.Text())
	assert.True(t, m.HasToolCalls())

	r := NewToolResultMessage("reader", ToolResult{ID: "fixed", Name: "x", Error: "boom", Code: "EXECUTION_ERROR"})
	assert.Equal(t, "boom", r.ErrorMessage)
	assert.True(t, r.ToolResults()[0].Failed())

	d := NewDecision(DecisionDispatch, "reader")
	annotated := m.WithDecision(d)
	assert.Nil(t, m.Decision)
	assert.Equal(t, "dispatch(reader)", annotated.Decision.String())
	assert.False(t, d.Terminal())
	assert.True(t, NewDecision(DecisionAbort, "x").Terminal())
}
