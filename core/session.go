package core

import (
	"maps"
	"sync"
	"time"
)

// Session is the transcript container for one learner. It tracks mutable
// key/value state plus the append-only message history and is safe for
// concurrent access.
//
// Contract:
//   - State mutations update Updated timestamp
//   - GetMessages returns a copy
//   - Clone performs deep copies of maps/slices for safe divergence.
type Session struct {
	ID       string            `json:"id"`
	UserID   string            `json:"user_id,omitempty"`
	State    map[string]any    `json:"state"`
	Messages []Message         `json:"messages"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
	Metadata map[string]string `json:"metadata"`
	mu       sync.RWMutex
}

// NewSession creates a new session with the given ID.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:       id,
		State:    map[string]any{},
		Messages: []Message{},
		Created:  now,
		Updated:  now,
		Metadata: map[string]string{},
	}
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState sets a key/value pair in session state.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.Updated = time.Now()
}

// ApplyStateDelta merges the provided key/value pairs into State.
func (s *Session) ApplyStateDelta(delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.State, delta)
	s.Updated = time.Now()
}

// AddMessage appends a message to the transcript.
func (s *Session) AddMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, m)
	s.Updated = time.Now()
}

// GetMessages returns a copy of the transcript.
func (s *Session) GetMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// OwnerHistory returns the messages belonging to the exchange of one node,
// in transcript order.
func (s *Session) OwnerHistory(owner string) []Message { return s.OwnerHistoryFrom(owner, 0) }

// OwnerHistoryFrom is OwnerHistory restricted to transcript positions >= from.
func (s *Session) OwnerHistoryFrom(owner string, from int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Message
	for i := max(from, 0); i < len(s.Messages); i++ {
		if s.Messages[i].Owner == owner {
			out = append(out, s.Messages[i])
		}
	}
	return out
}

// Len returns the number of transcript messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// LastMessage returns the most recent message of owner, if any.
func (s *Session) LastMessage(owner string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Owner == owner {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &Session{
		ID:       s.ID,
		UserID:   s.UserID,
		State:    maps.Clone(s.State),
		Messages: make([]Message, len(s.Messages)),
		Created:  s.Created,
		Updated:  s.Updated,
		Metadata: maps.Clone(s.Metadata),
	}
	copy(c.Messages, s.Messages)
	if c.State == nil {
		c.State = map[string]any{}
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	return c
}
