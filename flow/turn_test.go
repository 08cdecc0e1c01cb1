package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/model"
	"github.com/Titouaaaan/tutormesh/tool"
)

func TestTurn_BuildsRequest(t *testing.T) {
	m := model.NewMockModel("mock").EnqueueText("Moien!")
	rc := newRunContext(nil)
	rc.SetState("lesson.topic", "Begréissung")

	// history: a dangling tool result (its call was cut off) and a user reply
	res := core.NewToolResultMessage("reader", core.ToolResult{ID: "x", Name: "get_learning_content", Response: "ok"})
	require.NoError(t, rc.EmitMessage(res))
	require.NoError(t, rc.EmitMessage(core.NewUserReply("reader", "Salut", 1)))
	require.NoError(t, rc.EmitMessage(core.NewUserReply("supervisor", "not mine", 1)))

	turn := &Turn{
		Owner:        "reader",
		Model:        m,
		Instructions: `You teach {{index . "lesson.topic"}} as {{.role}}.`,
		Data:         map[string]any{"role": "reader"},
		Kickoff:      "Start the lesson.",
		Tools:        tool.NewRegistry(&mockTool{name: "get_learning_content"}),
	}
	content, err := turn.Generate(rc)
	require.NoError(t, err)
	text, calls := SplitContent(content)
	assert.Equal(t, "Moien!", text)
	assert.Empty(t, calls)

	reqs := m.Calls()
	require.Len(t, reqs, 1)
	assert.Equal(t, "You teach Begréissung as reader.", reqs[0].Instructions)
	require.Len(t, reqs[0].Contents, 2)
	assert.Equal(t, "user", reqs[0].Contents[0].Role)
	assert.Equal(t, core.TextPart{Text: "Salut"}, reqs[0].Contents[1].Parts[0])
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "get_learning_content", reqs[0].Tools[0].Function.Name)
}

func TestTurn_ModelBudget(t *testing.T) {
	m := model.NewMockModel("mock").SetFallbackText("ok")
	rc := core.NewRunContext(t.Context(), core.RunParams{SessionID: "s1", MaxModelCalls: 1})
	turn := &Turn{Owner: "reader", Model: m}

	_, err := turn.Generate(rc)
	require.NoError(t, err)
	_, err = turn.Generate(rc)
	assert.ErrorIs(t, err, core.ErrModelBudgetExhausted)
}

func TestTurn_ModelError(t *testing.T) {
	boom := errors.New("rate limited")
	m := model.NewMockModel("mock").EnqueueError(boom)
	_, err := (&Turn{Owner: "reader", Model: m}).Generate(newRunContext(nil))
	assert.ErrorIs(t, err, boom)
}
