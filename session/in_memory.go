package session

import (
	"errors"
	"slices"
	"sync"

	"github.com/Titouaaaan/tutormesh/core"
)

// ErrNotFound is returned by Lookup for unknown sessions.
var ErrNotFound = errors.New("session not found")

// InMemoryStore is a volatile SessionStore keeping transcripts in a process
// local map. It is safe for concurrent access. Returned sessions are clones
// so callers cannot mutate the stored transcript.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Get returns a clone of an existing session or creates an empty one.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}
	return s.createSessionLocked(sessionID).Clone(), nil
}

// Lookup returns a clone of an existing session without creating one.
func (s *InMemoryStore) Lookup(sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Create forces the creation (or overwriting) of a session with the given id.
func (s *InMemoryStore) Create(sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSessionLocked(sessionID).Clone(), nil
}

// AppendMessage adds a message to the transcript of the session.
func (s *InMemoryStore) AppendMessage(sessionID string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createSessionLocked(sessionID)
	}
	sess.AddMessage(msg)
	return nil
}

// ApplyDelta merges a key/value delta into the session state.
func (s *InMemoryStore) ApplyDelta(sessionID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createSessionLocked(sessionID)
	}
	sess.ApplyStateDelta(delta)
	return nil
}

// IDs returns the known session ids, sorted.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// createSessionLocked allocates and stores a new session; caller must hold
// the write lock.
func (s *InMemoryStore) createSessionLocked(sessionID string) *core.Session {
	sess := core.NewSession(sessionID)
	s.sessions[sessionID] = sess
	return sess
}
