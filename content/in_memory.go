package content

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Titouaaaan/tutormesh/core"
)

// InMemoryStore keeps documents in a map guarded by an RWMutex. Data is
// copied on Put and Get so callers cannot mutate stored buffers.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewInMemoryStore returns a store seeded with docs.
func NewInMemoryStore(docs map[string]string) *InMemoryStore {
	s := &InMemoryStore{docs: make(map[string][]byte, len(docs))}
	for k, v := range docs {
		s.docs[k] = []byte(v)
	}
	return s
}

// Get returns a copy of the document or core.ErrContentNotFound.
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, core.ErrContentNotFound
	}
	return slices.Clone(data), nil
}

// Put stores (or overwrites) the document.
func (s *InMemoryStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = slices.Clone(data)
	return nil
}

// List returns the sorted keys starting with prefix.
func (s *InMemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
