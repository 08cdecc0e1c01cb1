package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/Titouaaaan/tutormesh/logging"
)

// ToolContext provides a constrained surface for tool implementations. It
// exposes the session collaborators a tool may touch and accumulates state
// mutations in MessageActions so they travel with the tool result message.
type ToolContext struct {
	runCtx     *RunContext
	toolCallID string
	caller     string
	actions    MessageActions

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext,
// the id of the call being served and the node that requested it.
func NewToolContext(runCtx *RunContext, toolCallID, caller string) *ToolContext {
	return &ToolContext{
		runCtx:        runCtx,
		toolCallID:    toolCallID,
		caller:        caller,
		loggerAdapter: newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// UserID returns the learner the session belongs to.
func (tc *ToolContext) UserID() string { return tc.runCtx.UserID }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// ToolCallID returns the id of the call being served.
func (tc *ToolContext) ToolCallID() string { return tc.toolCallID }

// Caller returns the node name that requested the call.
func (tc *ToolContext) Caller() string { return tc.caller }

// CallerRole returns the worker role of the caller, if the caller is a worker.
func (tc *ToolContext) CallerRole() (Role, bool) {
	r := Role(tc.caller)
	return r, r.Valid()
}

// Queue returns the session Work Queue.
func (tc *ToolContext) Queue() WorkQueue { return tc.runCtx.Queue }

// Progress returns the progress store.
func (tc *ToolContext) Progress() ProgressStore { return tc.runCtx.ProgressStore }

// Content returns the content store.
func (tc *ToolContext) Content() ContentStore { return tc.runCtx.ContentStore }

// GetState retrieves the state associated with the given key.
func (tc *ToolContext) GetState(k string) (any, bool) { return tc.runCtx.GetState(k) }

// GetStateString is GetState for string values.
func (tc *ToolContext) GetStateString(k string) string { return tc.runCtx.GetStateString(k) }

// SetState records a state mutation both on the run context (for immediate
// visibility) and in the local delta for emission.
func (tc *ToolContext) SetState(k string, v any) {
	tc.runCtx.SetState(k, v)
	if tc.actions.StateDelta == nil {
		tc.actions.StateDelta = map[string]any{}
	}
	tc.actions.StateDelta[k] = v
}

// Actions returns the actions accumulated in the tool context.
func (tc *ToolContext) Actions() *MessageActions { return &tc.actions }

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.runCtx == nil || tc.runCtx.SessionID == "" || tc.toolCallID == "" {
		return fmt.Errorf("invalid ToolContext")
	}
	return nil
}

// InternalApplyActions merges accumulated actions into the result message.
func (tc *ToolContext) InternalApplyActions(m *Message) {
	if len(tc.actions.StateDelta) == 0 {
		return
	}
	if m.Actions.StateDelta == nil {
		m.Actions.StateDelta = map[string]any{}
	}
	maps.Copy(m.Actions.StateDelta, tc.actions.StateDelta)
}
