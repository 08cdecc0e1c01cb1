package progress

import (
	"context"
	"sync"

	"github.com/Titouaaaan/tutormesh/core"
)

// InMemoryStore keeps progress records in a process local map. It is safe
// for concurrent access and suited for tests and demo servers.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]core.ProgressRecord // userID -> records in append order
}

// NewInMemoryStore returns an empty in-memory progress store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]core.ProgressRecord)}
}

// Append records rec at the end of the learner's history.
func (s *InMemoryStore) Append(_ context.Context, rec core.ProgressRecord) error {
	if err := Prepare(&rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UserID] = append(s.records[rec.UserID], rec)
	return nil
}

// List returns a copy of the learner's records in append order.
func (s *InMemoryStore) List(_ context.Context, userID string) ([]core.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[userID]
	out := make([]core.ProgressRecord, len(recs))
	copy(out, recs)
	return out, nil
}
