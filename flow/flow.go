// Package flow provides the building blocks the lesson graph is made of:
// the routers that map a node's Decision to the next node, the Tool-Call
// node, and Turn, the single model round-trip used by the supervisor and the
// workers.
//
// Routers are pure functions over tagged decisions. They never look at
// message text, so a lesson chunk mentioning "reader" cannot reroute the graph.
package flow

import (
	"errors"
	"fmt"

	"github.com/Titouaaaan/tutormesh/core"
)

// Fixed node names. Worker nodes are named after their role.
const (
	NodeSupervisor = "supervisor"
	NodeDispatcher = "dispatcher"
	NodeToolCall   = "tool_call"
	// End is the pseudo node returned for terminal decisions.
	End = "__end__"
)

// ErrNoRoute is returned for a decision the source node may not produce.
var ErrNoRoute = errors.New("no route")

// Router maps the decision of node from to the next node.
type Router func(from string, d core.Decision) (string, error)

// IsWorker reports whether name is a worker node.
func IsWorker(name string) bool { return core.Role(name).Valid() }

// WorkerNode returns the node name of a worker role.
func WorkerNode(r core.Role) string { return string(r) }

// Route is the lesson graph's edge table.
//
//	supervisor  CallTool      -> tool_call
//	supervisor  UserTurn      -> supervisor
//	supervisor  Partitioned   -> dispatcher
//	dispatcher  Dispatch(r)   -> r
//	dispatcher  NoMoreLessons -> supervisor
//	worker      CallTool      -> tool_call
//	worker      UserTurn      -> same worker
//	worker      LessonDone    -> dispatcher
//	worker      TimedOut      -> supervisor
//	tool_call   ToolReturn(o) -> o
//	any         Terminate / Abort -> End
func Route(from string, d core.Decision) (string, error) {
	if d.Terminal() {
		return End, nil
	}

	switch {
	case from == NodeSupervisor:
		switch d.Kind {
		case core.DecisionCallTool:
			return NodeToolCall, nil
		case core.DecisionUserTurn:
			return NodeSupervisor, nil
		case core.DecisionPartitioned:
			return NodeDispatcher, nil
		}
	case from == NodeDispatcher:
		switch d.Kind {
		case core.DecisionDispatch:
			if IsWorker(d.Payload) {
				return d.Payload, nil
			}
		case core.DecisionNoMoreLessons:
			return NodeSupervisor, nil
		}
	case from == NodeToolCall:
		if d.Kind == core.DecisionToolReturn && (d.Payload == NodeSupervisor || IsWorker(d.Payload)) {
			return d.Payload, nil
		}
	case IsWorker(from):
		switch d.Kind {
		case core.DecisionCallTool:
			return NodeToolCall, nil
		case core.DecisionUserTurn:
			return from, nil
		case core.DecisionLessonDone:
			return NodeDispatcher, nil
		case core.DecisionTimedOut:
			return NodeSupervisor, nil
		}
	}

	return "", fmt.Errorf("%w: %s emitted %s", ErrNoRoute, from, d)
}
