package testutil

import (
	"github.com/Titouaaaan/tutormesh/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").User("u1").State("lesson.query", "Kapitel: 1").Messages(m1, m2).Build()
type SessionBuilder struct {
	id       string
	userID   string
	state    map[string]any
	messages []core.Message
}

// NewSessionBuilder creates a new builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, state: map[string]any{}}
}

// User sets the learner id (chainable).
func (b *SessionBuilder) User(id string) *SessionBuilder {
	b.userID = id
	return b
}

// State sets or overwrites a state key/value pair on the resulting session (chainable).
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Message appends a single message to the transcript (chainable).
func (b *SessionBuilder) Message(m core.Message) *SessionBuilder {
	b.messages = append(b.messages, m)
	return b
}

// Messages appends multiple messages to the transcript (chainable).
func (b *SessionBuilder) Messages(ms ...core.Message) *SessionBuilder {
	b.messages = append(b.messages, ms...)
	return b
}

// Build returns a *core.Session with pre-populated state and transcript.
// Message state deltas are applied in order, after the explicit state.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id)
	s.UserID = b.userID
	for k, v := range b.state {
		s.SetState(k, v)
	}
	for _, m := range b.messages {
		if m.SessionID == "" {
			m.SessionID = b.id
		}
		s.ApplyStateDelta(m.Actions.StateDelta)
		s.AddMessage(m)
	}
	return s
}
