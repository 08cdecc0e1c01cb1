package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Titouaaaan/tutormesh/agent"
	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/flow"
	"github.com/Titouaaaan/tutormesh/logging"
	"github.com/Titouaaaan/tutormesh/tool"
)

// Session end states.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusTimedOut  = "timed_out"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

var (
	// ErrMaxSteps is returned when a run exceeds Options.MaxSteps.
	ErrMaxSteps = errors.New("maximum graph steps exceeded")
	// ErrUnknownNode is returned when a router names an unregistered node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrMissingWorker is returned by NewLessonGraph when a role has no worker.
	ErrMissingWorker = errors.New("missing worker")
)

// Result summarizes one graph run.
type Result struct {
	Status string
	Steps  int
	// Last is the final decision. Its payload carries the abort reason.
	Last core.Decision
	// Node is the node that produced Last.
	Node string
}

// Options configures an Engine.
type Options struct {
	// MaxSteps bounds node activations per run; 0 means unbounded. Lessons
	// wait on the learner, so a bound mostly guards against routing loops.
	MaxSteps int

	// Router defaults to flow.Route.
	Router flow.Router

	Callbacks *CallbackManager
	Logger    logging.Logger
}

// Engine executes the lesson graph one node at a time. A node runs to
// completion, including the tools it triggers, before the router picks the
// next one. The graph is fixed at construction; Run is safe to call from
// multiple goroutines for distinct sessions.
type Engine struct {
	nodes     map[string]core.Node
	maxSteps  int
	router    flow.Router
	callbacks *CallbackManager
	logger    logging.Logger
}

// New creates an Engine over nodes.
func New(nodes []core.Node, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Router: flow.Route,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}

	byName := make(map[string]core.Node, len(nodes))
	for _, n := range nodes {
		byName[n.Name()] = n
	}

	return &Engine{
		nodes:     byName,
		maxSteps:  opts.MaxSteps,
		router:    opts.Router,
		callbacks: opts.Callbacks,
		logger:    opts.Logger,
	}
}

// NewLessonGraph wires the supervisor, the dispatcher, one worker per role
// and the Tool-Call node with the registries of their owners.
func NewLessonGraph(sup *agent.Supervisor, workers []*agent.Worker, optFns ...func(o *Options)) (*Engine, error) {
	registries := map[string]*tool.Registry{sup.Name(): sup.Tools()}
	nodes := []core.Node{sup, agent.NewDispatcher()}

	byRole := map[core.Role]bool{}
	for _, w := range workers {
		registries[w.Name()] = w.Tools()
		nodes = append(nodes, w)
		byRole[w.Role()] = true
	}
	for _, r := range core.Roles() {
		if !byRole[r] {
			return nil, fmt.Errorf("%w: %s", ErrMissingWorker, r)
		}
	}

	nodes = append(nodes, flow.NewToolCallNode(registries))
	return New(nodes, optFns...), nil
}

// Node returns the registered node called name.
func (e *Engine) Node(name string) (core.Node, bool) {
	n, ok := e.nodes[name]
	return n, ok
}

// Run drives the graph from the supervisor's Start until a terminal
// decision, an error or cancellation.
//
// Logging Fields:
//
//	session_id: session identifier
//	node: node name
//	decision: routing decision
//	step: activation counter
//	duration_ms: node runtime
func (e *Engine) Run(rc *core.RunContext) (Result, error) {
	return e.RunFrom(rc, flow.NodeSupervisor, core.NewDecision(core.DecisionStart, ""))
}

// RunFrom drives the graph starting at node with the decision in.
func (e *Engine) RunFrom(rc *core.RunContext, node string, in core.Decision) (Result, error) {
	res := Result{}
	for {
		if err := rc.Err(); err != nil {
			res.Status = StatusCancelled
			return res, err
		}
		if e.maxSteps > 0 && res.Steps >= e.maxSteps {
			res.Status = StatusFailed
			return res, fmt.Errorf("%w: %d", ErrMaxSteps, e.maxSteps)
		}

		n, ok := e.nodes[node]
		if !ok {
			res.Status = StatusFailed
			return res, fmt.Errorf("%w: %s", ErrUnknownNode, node)
		}
		res.Steps++

		out, err := e.step(rc, n, in, res.Steps)
		if err != nil {
			res.Status = StatusFailed
			if rc.Err() != nil {
				res.Status = StatusCancelled
			}
			return res, err
		}
		res.Last, res.Node = out, node

		if out.Terminal() {
			res.Status = statusOf(out)
			rc.LogInfo("engine.run.end", "session_id", rc.SessionID, "status", res.Status, "steps", res.Steps)
			return res, nil
		}

		next, err := e.router(node, out)
		if err != nil {
			res.Status = StatusFailed
			return res, err
		}
		node, in = next, out
	}
}

func (e *Engine) step(rc *core.RunContext, n core.Node, in core.Decision, step int) (core.Decision, error) {
	cbCtx := &CallbackContext{RunContext: rc, Node: n.Name(), Decision: in}
	if err := e.callbacks.ExecuteCallbacks(rc.Context, CallbackBeforeNode, cbCtx); err != nil {
		return core.Decision{}, fmt.Errorf("before_node callback failed: %w", err)
	}

	rc.LogDebug("engine.node.start", "session_id", rc.SessionID, "node", n.Name(), "decision", in.String(), "step", step)
	start := time.Now()

	out, err := n.Run(rc, in)
	dur := time.Since(start)
	if err != nil {
		rc.LogError("engine.node.error", "session_id", rc.SessionID, "node", n.Name(), "error", err.Error())
		cbCtx.Err = err
		if cbErr := e.callbacks.ExecuteCallbacks(rc.Context, CallbackOnError, cbCtx); cbErr != nil {
			e.logger.Warn("engine.callback.error", "node", n.Name(), "error", cbErr.Error())
		}
		return core.Decision{}, fmt.Errorf("node %s: %w", n.Name(), err)
	}

	rc.Observer.NodeCompleted(n.Name(), out, dur)
	rc.LogDebug("engine.node.end", "session_id", rc.SessionID, "node", n.Name(), "decision", out.String(), "duration_ms", dur.Milliseconds())

	cbCtx.Decision = out
	if err := e.callbacks.ExecuteCallbacks(rc.Context, CallbackAfterNode, cbCtx); err != nil {
		return core.Decision{}, fmt.Errorf("after_node callback failed: %w", err)
	}
	return out, nil
}

func statusOf(d core.Decision) string {
	switch {
	case d.Kind == core.DecisionTerminate:
		return StatusCompleted
	case d.Payload == agent.AbortTimedOut:
		return StatusTimedOut
	default:
		return StatusAborted
	}
}
