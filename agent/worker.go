package agent

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/flow"
	"github.com/Titouaaaan/tutormesh/model"
	"github.com/Titouaaaan/tutormesh/tool"
)

// Worker phases, kept in session state under PhaseKey.
const (
	PhaseNeedsChunk  = "needs_chunk"
	PhaseInteracting = "interacting"
	PhaseReporting   = "reporting"
	PhaseDone        = "done"
)

// PhaseKey is the state key holding a worker's phase.
func PhaseKey(r core.Role) string { return "worker." + string(r) + ".phase" }

func sinceKey(r core.Role) string   { return "worker." + string(r) + ".since" }
func retriesKey(r core.Role) string { return "worker." + string(r) + ".retries" }
func emptyKey(r core.Role) string   { return "worker." + string(r) + ".empty" }

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	// Instruction defaults to DefaultWorkerInstruction(role).
	Instruction Instruction

	// Sentinel ends the lesson when the model outputs it on its own line.
	// A CompletionMarker on the RunContext takes precedence.
	Sentinel string

	// MaxProtocolRetries bounds the corrective chunk retrievals per lesson,
	// and separately the re-prompts after empty model output.
	MaxProtocolRetries int

	// Kickoff opens every lesson as the first user message.
	Kickoff string

	Tools *tool.Registry
}

// Worker teaches one chunk per activation.
//
//	needs_chunk -> interacting -> (interacting)* -> reporting -> done
//
// The first model action must be a get_learning_content call; anything else
// is dropped and the call is issued on the model's behalf. User-facing text
// goes through the Handoff Channel and the learner's reply is recorded as a
// separate message with the same turn index.
type Worker struct {
	role  core.Role
	model model.Model
	opts  WorkerOptions
}

var _ core.Node = (*Worker)(nil)

// NewWorker creates the worker node of role r.
func NewWorker(r core.Role, m model.Model, optFns ...func(o *WorkerOptions)) *Worker {
	opts := WorkerOptions{
		Instruction:        NewInstructionFromText(DefaultWorkerInstruction(r)),
		Sentinel:           DefaultSentinel,
		MaxProtocolRetries: 2,
		Kickoff:            "Hello, I am ready for the lesson.",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tools == nil {
		opts.Tools = tool.WorkerTools()
	}
	return &Worker{role: r, model: m, opts: opts}
}

// Name implements core.Node.
func (w *Worker) Name() string { return flow.WorkerNode(w.role) }

// Role returns the worker's role.
func (w *Worker) Role() core.Role { return w.role }

// Tools returns the registry the Tool-Call node uses for this worker.
func (w *Worker) Tools() *tool.Registry { return w.opts.Tools }

func (w *Worker) sentinel(rc *core.RunContext) string {
	if rc.CompletionMarker != "" {
		return rc.CompletionMarker
	}
	return w.opts.Sentinel
}

// Run implements core.Node.
//
// Logging Fields:
//
//	role: worker role
//	phase: phase after the activation
//	decision: routing decision
func (w *Worker) Run(rc *core.RunContext, in core.Decision) (core.Decision, error) {
	var (
		out core.Decision
		err error
	)
	switch in.Kind {
	case core.DecisionDispatch:
		if in.Payload != string(w.role) {
			return core.Decision{}, unexpected(w.Name(), in)
		}
		w.activate(rc)
		out, err = w.step(rc)
	case core.DecisionToolReturn:
		out, err = w.afterTools(rc)
	case core.DecisionUserTurn:
		out, err = w.step(rc)
	default:
		return core.Decision{}, unexpected(w.Name(), in)
	}
	if err != nil {
		return core.Decision{}, err
	}

	rc.LogDebug("agent.worker.run", "role", string(w.role), "phase", rc.GetStateString(PhaseKey(w.role)), "decision", out.String())
	return out, nil
}

// activate resets the per-lesson state. Transcript positions before since
// belong to earlier lessons and are not shown to the model.
func (w *Worker) activate(rc *core.RunContext) {
	rc.SetState(PhaseKey(w.role), PhaseNeedsChunk)
	rc.SetState(sinceKey(w.role), rc.Session.Len())
	rc.SetState(retriesKey(w.role), 0)
	rc.SetState(emptyKey(w.role), 0)
	rc.SetState(tool.WorkerChunkKey(w.role), "")
	rc.SetState(tool.WorkerReportedKey(w.role), false)
	rc.LogInfo("agent.worker.activated", "role", string(w.role))
}

func (w *Worker) afterTools(rc *core.RunContext) (core.Decision, error) {
	switch rc.GetStateString(PhaseKey(w.role)) {
	case PhaseNeedsChunk:
		if rc.GetStateString(tool.WorkerChunkKey(w.role)) != "" {
			rc.SetState(PhaseKey(w.role), PhaseInteracting)
			return w.step(rc)
		}
		retries := intState(rc, retriesKey(w.role)) + 1
		rc.SetState(retriesKey(w.role), retries)
		if retries > w.opts.MaxProtocolRetries {
			return core.Decision{}, fmt.Errorf("%w: %s could not retrieve its chunk after %d retries",
				ErrProtocolViolation, w.role, w.opts.MaxProtocolRetries)
		}
		rc.LogWarn("agent.worker.retrieval_failed", "role", string(w.role), "retry", retries)
		return w.requestChunk(rc)

	case PhaseReporting:
		if !boolState(rc, tool.WorkerReportedKey(w.role)) {
			rc.LogWarn("agent.worker.report_missing", "role", string(w.role))
		}
		return w.finish(rc)

	default:
		return w.step(rc)
	}
}

// step lets the model act once.
func (w *Worker) step(rc *core.RunContext) (core.Decision, error) {
	instructions, err := w.opts.Instruction.Resolve(rc)
	if err != nil {
		return core.Decision{}, err
	}

	turn := &flow.Turn{
		Owner:        w.Name(),
		From:         intState(rc, sinceKey(w.role)),
		Model:        w.model,
		Instructions: instructions,
		Data: map[string]any{
			"role":     string(w.role),
			"sentinel": w.sentinel(rc),
			"user_id":  rc.UserID,
		},
		Kickoff: w.opts.Kickoff,
		Tools:   w.opts.Tools,
	}
	content, err := turn.Generate(rc)
	if err != nil {
		return core.Decision{}, err
	}
	text, calls := flow.SplitContent(content)

	if rc.GetStateString(PhaseKey(w.role)) == PhaseNeedsChunk {
		if !slices.ContainsFunc(calls, func(c core.ToolCall) bool { return c.Name == tool.GetLearningContentName }) {
			rc.Observer.ProtocolViolation(w.role)
			rc.LogWarn("agent.worker.protocol_violation", "role", string(w.role), "dropped_chars", len(text), "tool_calls", len(calls))
			return w.requestChunk(rc)
		}
		return w.callTools(rc, text, calls)
	}

	if len(calls) > 0 {
		return w.callTools(rc, text, calls)
	}

	if strings.TrimSpace(text) == "" {
		return w.emptyOutput(rc)
	}

	if before, done := splitSentinel(text, w.sentinel(rc)); done {
		return w.complete(rc, before)
	}

	if err := exchange(rc, core.WorkerSpeaker(w.role), w.Name(), text); err != nil {
		if phase, ok := stallPhase(err); ok {
			rc.LogWarn("agent.worker.stalled", "role", string(w.role), "phase", phase)
			return core.NewDecision(core.DecisionTimedOut, phase), nil
		}
		return core.Decision{}, err
	}
	return core.NewDecision(core.DecisionUserTurn, ""), nil
}

// emptyOutput re-prompts the model after a turn without text or tool calls.
// Once the budget is spent the lesson is closed as if the sentinel was seen.
func (w *Worker) emptyOutput(rc *core.RunContext) (core.Decision, error) {
	rc.Observer.ProtocolViolation(w.role)
	n := intState(rc, emptyKey(w.role)) + 1
	rc.SetState(emptyKey(w.role), n)
	if n > w.opts.MaxProtocolRetries {
		rc.LogWarn("agent.worker.empty_output", "role", string(w.role), "attempt", n, "action", "complete")
		return w.complete(rc, "")
	}
	rc.LogWarn("agent.worker.empty_output", "role", string(w.role), "attempt", n, "action", "reprompt")
	return w.step(rc)
}

func (w *Worker) callTools(rc *core.RunContext, text string, calls []core.ToolCall) (core.Decision, error) {
	msg := core.NewToolCallMessage(core.WorkerSpeaker(w.role), w.Name(), text, calls...)
	if err := rc.EmitMessage(msg); err != nil {
		return core.Decision{}, err
	}
	return core.NewDecision(core.DecisionCallTool, w.Name()), nil
}

func (w *Worker) requestChunk(rc *core.RunContext) (core.Decision, error) {
	return w.callTools(rc, "", []core.ToolCall{synthesizeCall(tool.GetLearningContentName, nil)})
}

// complete handles the sentinel. Text before it still reaches the learner,
// without waiting for a reply.
func (w *Worker) complete(rc *core.RunContext, before string) (core.Decision, error) {
	if before != "" {
		if rc.Handoff == nil {
			return core.Decision{}, ErrNoHandoff
		}
		if err := rc.EmitMessage(core.NewTextMessage(core.WorkerSpeaker(w.role), w.Name(), before)); err != nil {
			return core.Decision{}, err
		}
		if err := rc.Handoff.Send(rc.Context, core.WorkerSpeaker(w.role), before); err != nil {
			if phase, ok := stallPhase(err); ok {
				return core.NewDecision(core.DecisionTimedOut, phase), nil
			}
			return core.Decision{}, err
		}
	}

	if boolState(rc, tool.WorkerReportedKey(w.role)) {
		return w.finish(rc)
	}

	rc.SetState(PhaseKey(w.role), PhaseReporting)
	call := synthesizeCall(tool.CreateProgressReportName, map[string]any{
		"agent_name": string(w.role),
		"report":     before,
	})
	return w.callTools(rc, "", []core.ToolCall{call})
}

func (w *Worker) finish(rc *core.RunContext) (core.Decision, error) {
	rc.SetState(PhaseKey(w.role), PhaseDone)
	out := core.NewDecision(core.DecisionLessonDone, string(w.role))
	msg := core.NewTextMessage(core.WorkerSpeaker(w.role), w.Name(), string(w.role)+" FINAL REPORT").WithDecision(out)
	if err := rc.EmitMessage(msg); err != nil {
		return core.Decision{}, err
	}
	rc.LogInfo("agent.worker.done", "role", string(w.role))
	return out, nil
}
