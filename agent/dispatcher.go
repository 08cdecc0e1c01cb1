package agent

import (
	"errors"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/flow"
)

// ErrNoQueue is returned when the session has no Work Queue.
var ErrNoQueue = errors.New("no work queue bound to the session")

// Dispatcher routes control to the worker whose role heads the Work Queue.
// It only peeks: the queue changes when the worker retrieves its chunk, so
// dispatching the same queue state twice yields the same worker.
type Dispatcher struct{}

var _ core.Node = Dispatcher{}

// NewDispatcher returns the dispatcher node.
func NewDispatcher() Dispatcher { return Dispatcher{} }

// Name implements core.Node.
func (Dispatcher) Name() string { return flow.NodeDispatcher }

// Run implements core.Node.
//
// Logging Fields:
//
//	role: dispatched worker
//	remaining: queue length
func (d Dispatcher) Run(rc *core.RunContext, in core.Decision) (core.Decision, error) {
	switch in.Kind {
	case core.DecisionPartitioned, core.DecisionLessonDone:
	default:
		return core.Decision{}, unexpected(d.Name(), in)
	}
	if rc.Queue == nil {
		return core.Decision{}, ErrNoQueue
	}

	role, ok := rc.Queue.Peek()
	if !ok {
		out := core.NewDecision(core.DecisionNoMoreLessons, "")
		rc.LogInfo("agent.dispatcher.exhausted")
		msg := core.NewTextMessage(core.SpeakerDispatcher, d.Name(), "no more lessons").WithDecision(out)
		return out, rc.EmitMessage(msg)
	}

	out := core.NewDecision(core.DecisionDispatch, string(role))
	rc.LogInfo("agent.dispatcher.dispatch", "role", string(role), "remaining", rc.Queue.Len())
	msg := core.NewTextMessage(core.SpeakerDispatcher, d.Name(),
		string(role)+": retrieve your learning content").WithDecision(out)
	return out, rc.EmitMessage(msg)
}
