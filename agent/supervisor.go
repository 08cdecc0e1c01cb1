package agent

import (
	"fmt"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/flow"
	"github.com/Titouaaaan/tutormesh/model"
	"github.com/Titouaaaan/tutormesh/tool"
)

const partitionAttemptsKey = "supervisor.partition_attempts"

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	// Model drives the recommendation dialogue. Without it the session must
	// start with a lesson query.
	Model model.Model

	// Instruction defaults to DefaultSupervisorInstruction.
	Instruction Instruction

	// MaxPartitionAttempts bounds get_chunks calls per session.
	MaxPartitionAttempts int

	// Kickoff opens the dialogue as the first user message.
	Kickoff string
}

// Supervisor opens and closes the session. It collects the learner context,
// agrees on a lesson with the learner when a model is configured, partitions
// the lesson material into the Work Queue and hands over to the dispatcher.
// NoMoreLessons ends the session; a stalled worker aborts it.
type Supervisor struct {
	tools *tool.Registry
	opts  SupervisorOptions
}

var _ core.Node = (*Supervisor)(nil)

// NewSupervisor creates the supervisor node. tools must contain get_files,
// select_lesson and get_chunks.
func NewSupervisor(tools *tool.Registry, optFns ...func(o *SupervisorOptions)) *Supervisor {
	opts := SupervisorOptions{
		Instruction:          NewInstructionFromText(DefaultSupervisorInstruction),
		MaxPartitionAttempts: 3,
		Kickoff:              "Hello!",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Supervisor{tools: tools, opts: opts}
}

// Name implements core.Node.
func (s *Supervisor) Name() string { return flow.NodeSupervisor }

// Tools returns the registry the Tool-Call node uses for the supervisor.
func (s *Supervisor) Tools() *tool.Registry { return s.tools }

// Run implements core.Node.
//
// Logging Fields:
//
//	decision: incoming decision
//	reason: abort reason
func (s *Supervisor) Run(rc *core.RunContext, in core.Decision) (core.Decision, error) {
	switch in.Kind {
	case core.DecisionStart:
		rc.LogInfo("agent.supervisor.start", "user_id", rc.UserID)
		return s.call(rc, tool.GetFilesName, map[string]any{"user_id": rc.UserID})
	case core.DecisionToolReturn:
		return s.afterTools(rc)
	case core.DecisionUserTurn:
		return s.converse(rc)
	case core.DecisionNoMoreLessons:
		return s.end(rc, core.NewDecision(core.DecisionTerminate, ""), "all lessons completed")
	case core.DecisionTimedOut:
		return s.abort(rc, AbortTimedOut)
	}
	return core.Decision{}, unexpected(s.Name(), in)
}

func (s *Supervisor) afterTools(rc *core.RunContext) (core.Decision, error) {
	results := lastResults(rc, s.Name())

	for _, res := range results {
		if res.Name == tool.GetChunksName {
			return s.afterPartition(rc, res)
		}
	}
	for _, res := range results {
		switch res.Name {
		case tool.SelectLessonName:
			if !res.Failed() {
				return s.partition(rc)
			}
		case tool.GetFilesName:
			if rc.GetStateString(tool.StateQuery) != "" || s.opts.Model == nil {
				return s.partition(rc)
			}
		}
	}
	return s.converse(rc)
}

func (s *Supervisor) partition(rc *core.RunContext) (core.Decision, error) {
	query := rc.GetStateString(tool.StateQuery)
	if query == "" {
		return s.abort(rc, AbortNoLessonSelected)
	}
	rc.SetState(partitionAttemptsKey, intState(rc, partitionAttemptsKey)+1)
	return s.call(rc, tool.GetChunksName, map[string]any{"query": query})
}

func (s *Supervisor) afterPartition(rc *core.RunContext, res core.ToolResult) (core.Decision, error) {
	if !res.Failed() {
		out := core.NewDecision(core.DecisionPartitioned, "")
		n := 0
		if rc.Queue != nil {
			n = rc.Queue.Len()
		}
		rc.LogInfo("agent.supervisor.partitioned", "items", n)
		msg := core.NewTextMessage(core.SpeakerSupervisor, s.Name(), fmt.Sprintf("lesson ready: %d chunks", n)).WithDecision(out)
		return out, rc.EmitMessage(msg)
	}

	if res.Code == tool.CodeQueueIntegrity {
		return s.abort(rc, AbortQueueIntegrity)
	}
	attempts := intState(rc, partitionAttemptsKey)
	rc.LogWarn("agent.supervisor.partition_failed", "code", res.Code, "attempt", attempts, "error", res.Error)
	if attempts >= s.opts.MaxPartitionAttempts {
		return s.abort(rc, AbortPartitionFailed)
	}
	return s.partition(rc)
}

// converse runs one dialogue step with the learner.
func (s *Supervisor) converse(rc *core.RunContext) (core.Decision, error) {
	if s.opts.Model == nil {
		return s.abort(rc, AbortNoLessonSelected)
	}
	instructions, err := s.opts.Instruction.Resolve(rc)
	if err != nil {
		return core.Decision{}, err
	}

	turn := &flow.Turn{
		Owner:        s.Name(),
		Model:        s.opts.Model,
		Instructions: instructions,
		Data:         map[string]any{"user_id": rc.UserID},
		Kickoff:      s.opts.Kickoff,
		Tools:        s.tools,
	}
	content, err := turn.Generate(rc)
	if err != nil {
		return core.Decision{}, err
	}

	text, calls := flow.SplitContent(content)
	if len(calls) > 0 {
		if err := rc.EmitMessage(core.NewToolCallMessage(core.SpeakerSupervisor, s.Name(), text, calls...)); err != nil {
			return core.Decision{}, err
		}
		return core.NewDecision(core.DecisionCallTool, s.Name()), nil
	}

	if err := exchange(rc, core.SpeakerSupervisor, s.Name(), text); err != nil {
		if phase, ok := stallPhase(err); ok {
			rc.LogWarn("agent.supervisor.stalled", "phase", phase)
			return s.abort(rc, AbortTimedOut)
		}
		return core.Decision{}, err
	}
	return core.NewDecision(core.DecisionUserTurn, ""), nil
}

func (s *Supervisor) call(rc *core.RunContext, name string, args map[string]any) (core.Decision, error) {
	msg := core.NewToolCallMessage(core.SpeakerSupervisor, s.Name(), "", synthesizeCall(name, args))
	if err := rc.EmitMessage(msg); err != nil {
		return core.Decision{}, err
	}
	return core.NewDecision(core.DecisionCallTool, s.Name()), nil
}

func (s *Supervisor) abort(rc *core.RunContext, reason string) (core.Decision, error) {
	rc.LogWarn("agent.supervisor.abort", "reason", reason)
	return s.end(rc, core.NewDecision(core.DecisionAbort, reason), "session aborted: "+reason)
}

func (s *Supervisor) end(rc *core.RunContext, out core.Decision, text string) (core.Decision, error) {
	msg := core.NewTextMessage(core.SpeakerSupervisor, s.Name(), text).WithDecision(out)
	if err := rc.EmitMessage(msg); err != nil {
		return core.Decision{}, err
	}
	return out, nil
}
