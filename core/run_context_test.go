package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunContextForTest(emit chan<- Message, resume <-chan struct{}) *RunContext {
	return NewRunContext(context.Background(), RunParams{
		SessionID: "sess-1",
		RunID:     "run-1",
		UserID:    "user-1",
		Emit:      emit,
		Resume:    resume,
	})
}

func TestRunContext_EmitMessageMergesStateDelta(t *testing.T) {
	rc := newRunContextForTest(nil, nil)
	rc.SetState("lesson.chapter", "1")

	require.NoError(t, rc.EmitMessage(NewTextMessage(SpeakerSupervisor, "supervisor", "hi")))

	msgs := rc.Session.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "sess-1", msgs[0].SessionID)
	assert.Equal(t, "run-1", msgs[0].RunID)
	assert.Equal(t, "1", msgs[0].Actions.StateDelta["lesson.chapter"])
	assert.Empty(t, rc.StateDelta, "StateDelta should clear after emit")
	assert.Equal(t, "1", rc.GetStateString("lesson.chapter"), "delta applied to working session")
}

func TestRunContext_EmitMessageWaitsForResume(t *testing.T) {
	emit := make(chan Message)
	resume := make(chan struct{})
	rc := newRunContextForTest(emit, resume)

	done := make(chan error, 1)
	go func() { done <- rc.EmitMessage(NewTextMessage(SpeakerDispatcher, "dispatcher", "reader")) }()

	m := <-emit
	assert.Equal(t, SpeakerDispatcher, m.Speaker)

	select {
	case <-done:
		t.Fatal("EmitMessage returned before resume")
	case <-time.After(20 * time.Millisecond):
	}

	resume <- struct{}{}
	require.NoError(t, <-done)
}

func TestRunContext_EmitMessageCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc := NewRunContext(ctx, RunParams{SessionID: "s", Emit: make(chan Message)})
	cancel()

	err := rc.EmitMessage(NewTextMessage(SpeakerSupervisor, "supervisor", "x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunContext_HistoryBounded(t *testing.T) {
	rc := newRunContextForTest(nil, nil)
	rc.MaxHistoryEntries = 2
	for _, txt := range []string{"a", "b", "c"} {
		rc.Session.AddMessage(NewTextMessage(WorkerSpeaker(RoleReader), "reader", txt))
	}

	h := rc.History("reader")
	require.Len(t, h, 2)
	assert.Equal(t, "b", h[0].Text())
}

func TestRunContext_NextTurn(t *testing.T) {
	rc := newRunContextForTest(nil, nil)
	assert.Equal(t, 1, rc.NextTurn())
	assert.Equal(t, 2, rc.NextTurn())
}

func TestToolContext_SetStateVisibleAndCollected(t *testing.T) {
	rc := newRunContextForTest(nil, nil)
	tc := NewToolContext(rc, "call-1", "reader")

	require.NoError(t, tc.Validate())
	tc.SetState("k", "v")

	v, ok := rc.GetState("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	role, ok := tc.CallerRole()
	assert.True(t, ok)
	assert.Equal(t, RoleReader, role)

	msg := NewToolResultMessage("reader", ToolResult{ID: "call-1", Name: "t"})
	tc.InternalApplyActions(&msg)
	assert.Equal(t, "v", msg.Actions.StateDelta["k"])
}

func TestToolContext_ValidateRequiresCallID(t *testing.T) {
	rc := newRunContextForTest(nil, nil)
	assert.Error(t, NewToolContext(rc, "", "reader").Validate())

	_, ok := NewToolContext(rc, "c", "supervisor").CallerRole()
	assert.False(t, ok)
}
