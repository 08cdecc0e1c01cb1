package flow

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/internal/util"
	"github.com/Titouaaaan/tutormesh/tool"
)

// ErrNoToolCalls is returned when the owner's last message requests no tool.
var ErrNoToolCalls = errors.New("last message requests no tool")

// ToolCallNode executes the tool calls of the most recent message of the
// node that routed here, strictly in the listed order, and hands control
// back to that node.
//
// Guarantees:
//   - exactly one result message per call, keyed by the call id
//   - a tool missing from the owner's registry is never invoked
//   - tool failures and panics become result messages, never errors
//   - ToolContext state mutations travel with the result message
type ToolCallNode struct {
	registries map[string]*tool.Registry
}

// NewToolCallNode builds the node from the per-owner tool registries.
func NewToolCallNode(registries map[string]*tool.Registry) *ToolCallNode {
	return &ToolCallNode{registries: registries}
}

// Name implements core.Node.
func (n *ToolCallNode) Name() string { return NodeToolCall }

// Run implements core.Node. in must be CallTool(owner).
func (n *ToolCallNode) Run(rc *core.RunContext, in core.Decision) (core.Decision, error) {
	owner := in.Payload
	if in.Kind != core.DecisionCallTool || owner == "" {
		return core.Decision{}, fmt.Errorf("%w: tool_call activated with %s", ErrNoRoute, in)
	}

	last, ok := rc.Session.LastMessage(owner)
	if !ok || !last.HasToolCalls() {
		return core.Decision{}, fmt.Errorf("%w: owner %s", ErrNoToolCalls, owner)
	}

	for _, call := range last.ToolCalls() {
		if err := rc.Err(); err != nil {
			return core.Decision{}, err
		}
		if err := n.execute(rc, owner, call); err != nil {
			return core.Decision{}, err
		}
	}

	return core.NewDecision(core.DecisionToolReturn, owner), nil
}

func (n *ToolCallNode) execute(rc *core.RunContext, owner string, call core.ToolCall) error {
	toolCtx := core.NewToolContext(rc, call.ID, owner)
	start := time.Now()

	res := core.ToolResult{ID: call.ID, Name: call.Name}
	result, err := n.invoke(toolCtx, owner, call)
	if err != nil {
		res.Error = err.Error()
		res.Code = tool.CodeOf(err)
	} else {
		res.Response = result
	}
	dur := time.Since(start)

	rc.LogInfo(
		"flow.tool.executed",
		"node", owner,
		"tool", call.Name,
		"call_id", call.ID,
		"code", res.Code,
		"duration_ms", dur.Milliseconds(),
	)
	rc.Observer.ToolCompleted(call.Name, res.Code, dur)

	msg := core.NewToolResultMessage(owner, res)
	toolCtx.InternalApplyActions(&msg)
	return rc.EmitMessage(msg)
}

func (n *ToolCallNode) invoke(toolCtx *core.ToolContext, owner string, call core.ToolCall) (result any, err error) {
	impl, ok := n.registries[owner].Get(call.Name)
	if !ok {
		return nil, tool.NewToolError(call.Name, fmt.Sprintf("tool %s is not available to %s", call.Name, owner), tool.CodeNotPermitted)
	}

	args, err := util.DecodeArguments(call.Arguments)
	if err != nil {
		return nil, tool.NewToolError(call.Name, err.Error(), tool.CodeValidation)
	}

	defer func() {
		if r := recover(); r != nil {
			toolCtx.LogError("flow.tool.panic", "tool", call.Name, "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
			result, err = nil, tool.NewToolError(call.Name, fmt.Sprintf("panic: %v", r), tool.CodePanic)
		}
	}()
	return impl.Call(toolCtx, args)
}
