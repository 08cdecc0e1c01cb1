package core

import (
	"context"
	"maps"

	"github.com/Titouaaaan/tutormesh/logging"
)

// RunContext carries the per-session execution scope handed to every node.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, UserID, RunID)
//   - Emission / resumption coordination channels shared with the runner
//   - The session-scoped Work Queue and Handoff Channel
//   - Backing stores for progress records and lesson content
//   - A working Session snapshot and a staged StateDelta
//
// State mutations performed via SetState accumulate in StateDelta until the
// next EmitMessage, which attaches them to the emitted message.
type RunContext struct {
	Context           context.Context
	SessionID, RunID  string
	UserID            string
	Emit              chan<- Message
	Resume            <-chan struct{}
	Session           *Session
	Queue             WorkQueue
	Handoff           Handoff
	ProgressStore     ProgressStore
	ContentStore      ContentStore
	Observer          Observer
	Limiter           *ModelLimiter
	StateDelta        map[string]any
	CompletionMarker  string
	MaxHistoryEntries int

	turn int

	*loggerAdapter
}

// RunParams groups the collaborators of a RunContext.
type RunParams struct {
	SessionID, RunID, UserID string
	Session                  *Session
	Queue                    WorkQueue
	Handoff                  Handoff
	ProgressStore            ProgressStore
	ContentStore             ContentStore
	Observer                 Observer
	MaxModelCalls            int
	CompletionMarker         string
	MaxHistoryEntries        int
	Emit                     chan<- Message
	Resume                   <-chan struct{}
	Logger                   logging.Logger
}

// NewRunContext constructs a RunContext with an empty state delta. A nil
// Session is replaced by a fresh one; a nil Observer by NoOpObserver.
func NewRunContext(ctx context.Context, p RunParams) *RunContext {
	sess := p.Session
	if sess == nil {
		sess = NewSession(p.SessionID)
		sess.UserID = p.UserID
	}
	obs := p.Observer
	if obs == nil {
		obs = NoOpObserver{}
	}
	return &RunContext{
		Context:           ctx,
		SessionID:         p.SessionID,
		RunID:             p.RunID,
		UserID:            p.UserID,
		Emit:              p.Emit,
		Resume:            p.Resume,
		Session:           sess,
		Queue:             p.Queue,
		Handoff:           p.Handoff,
		ProgressStore:     p.ProgressStore,
		ContentStore:      p.ContentStore,
		Observer:          obs,
		Limiter:           NewModelLimiter(p.MaxModelCalls),
		StateDelta:        map[string]any{},
		CompletionMarker:  p.CompletionMarker,
		MaxHistoryEntries: p.MaxHistoryEntries,
		loggerAdapter:     newLoggerAdapter(p.Logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged value if present, else the session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}
	if rc.Session != nil {
		return rc.Session.GetState(k)
	}
	return nil, false
}

// GetStateString is GetState for string values.
func (rc *RunContext) GetStateString(k string) string {
	v, _ := rc.GetState(k)
	s, _ := v.(string)
	return s
}

// SetState stages a state mutation in the delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// ApplyStateDelta merges all pairs from d into the staged StateDelta.
func (rc *RunContext) ApplyStateDelta(d map[string]any) { maps.Copy(rc.StateDelta, d) }

// NextTurn allocates the turn index shared by an utterance and its reply.
func (rc *RunContext) NextTurn() int {
	rc.turn++
	return rc.turn
}

// EmitMessage stamps m with the run identifiers, merges the staged state
// delta into it and appends it to the working session. When the runner is
// attached through Emit, it then blocks until the runner has persisted the
// message and signalled Resume.
func (rc *RunContext) EmitMessage(m Message) error {
	m.SessionID = rc.SessionID
	m.RunID = rc.RunID
	if len(rc.StateDelta) > 0 {
		if m.Actions.StateDelta == nil {
			m.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(m.Actions.StateDelta, rc.StateDelta)
	}

	if rc.Emit != nil {
		select {
		case <-rc.Context.Done():
			return rc.Context.Err()
		case rc.Emit <- m:
		}
	}

	rc.Session.ApplyStateDelta(m.Actions.StateDelta)
	rc.Session.AddMessage(m)
	rc.StateDelta = map[string]any{}

	return rc.waitForResume()
}

func (rc *RunContext) waitForResume() error {
	if rc.Emit == nil || rc.Resume == nil {
		return nil
	}
	select {
	case <-rc.Resume:
		return nil
	case <-rc.Context.Done():
		return rc.Context.Err()
	}
}

// History returns the transcript of one node's exchange, bounded to the
// most recent MaxHistoryEntries messages when that limit is set.
func (rc *RunContext) History(owner string) []Message { return rc.HistoryFrom(owner, 0) }

// HistoryFrom is History restricted to transcript positions >= from. Nodes
// activated more than once use it to scope the model to the current activation.
func (rc *RunContext) HistoryFrom(owner string, from int) []Message {
	h := rc.Session.OwnerHistoryFrom(owner, from)
	if rc.MaxHistoryEntries > 0 && len(h) > rc.MaxHistoryEntries {
		h = h[len(h)-rc.MaxHistoryEntries:]
	}
	return h
}
