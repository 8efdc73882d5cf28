package audit

import (
	"context"
	"sync"

	id "meldeamt/pkg/domain"
)

// InMemoryStore keeps audit entries in memory. Used as the fake in service
// and pipeline tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	e.ID = s.seq
	s.entries = append(s.entries, *e)
	return nil
}

func (s *InMemoryStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}
