package core

import "fmt"

// DecisionKind enumerates the tagged routing outcomes a node can produce.
// Routers switch on the kind; they never inspect message text.
type DecisionKind string

const (
	DecisionStart         DecisionKind = "start"
	DecisionCallTool      DecisionKind = "call_tool"   // Payload: owner node
	DecisionToolReturn    DecisionKind = "tool_return" // Payload: owner node
	DecisionUserTurn      DecisionKind = "user_turn"
	DecisionDispatch      DecisionKind = "dispatch" // Payload: worker role
	DecisionNoMoreLessons DecisionKind = "no_more_lessons"
	DecisionPartitioned   DecisionKind = "partitioned"
	DecisionLessonDone    DecisionKind = "lesson_done"
	DecisionTimedOut      DecisionKind = "timed_out" // Payload: stalled phase
	DecisionTerminate     DecisionKind = "terminate"
	DecisionAbort         DecisionKind = "abort" // Payload: reason
)

// Decision is the structured result of a node activation.
type Decision struct {
	Kind    DecisionKind `json:"kind"`
	Payload string       `json:"payload,omitempty"`
}

// NewDecision builds a Decision with an optional payload.
func NewDecision(kind DecisionKind, payload string) Decision {
	return Decision{Kind: kind, Payload: payload}
}

// Terminal reports whether the decision ends graph execution.
func (d Decision) Terminal() bool {
	return d.Kind == DecisionTerminate || d.Kind == DecisionAbort
}

func (d Decision) String() string {
	if d.Payload == "" {
		return string(d.Kind)
	}
	return fmt.Sprintf("%s(%s)", d.Kind, d.Payload)
}

// Node is one step of the lesson graph. Run receives the decision that routed
// control to the node and returns the decision the routers act upon.
type Node interface {
	Name() string
	Run(rc *RunContext, in Decision) (Decision, error)
}
