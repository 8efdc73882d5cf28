package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"meldeamt/internal/caserec/models"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/platform/sentinel"
)

// InMemoryCaseStore implements CaseStore with a mutex-guarded map. Used as
// the fake in service and pipeline tests; production runs PostgresCaseStore.
type InMemoryCaseStore struct {
	mu    sync.RWMutex
	seq   int64
	cases map[id.CaseID]*models.Case
}

// NewInMemoryCaseStore creates an empty in-memory case store.
func NewInMemoryCaseStore() *InMemoryCaseStore {
	return &InMemoryCaseStore{cases: make(map[id.CaseID]*models.Case)}
}

func (s *InMemoryCaseStore) Create(ctx context.Context, c *models.Case) (id.CaseID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	caseID := id.NewCaseID(s.seq)
	c.ID = caseID
	stored := *c
	s.cases[caseID] = &stored
	return caseID, nil
}

func (s *InMemoryCaseStore) Get(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	clone := *c
	return &clone, nil
}

func (s *InMemoryCaseStore) UpdateStatus(ctx context.Context, caseID id.CaseID, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryCaseStore) UpdateStatusIf(ctx context.Context, caseID id.CaseID, to models.Status, from ...models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	for _, f := range from {
		if c.Status == f {
			c.Status = to
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("case %s is %s: %w", caseID, c.Status, sentinel.ErrInvalidState)
}

func (s *InMemoryCaseStore) SetCanonicalAddress(ctx context.Context, caseID id.CaseID, canonical string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	c.CanonicalAddress = canonical
	c.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryCaseStore) SetRegistryExists(ctx context.Context, caseID id.CaseID, exists bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	c.RegistryExists = &exists
	c.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryCaseStore) MarkApproved(ctx context.Context, caseID id.CaseID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	c.Status = models.StatusProcessing
	c.ApprovedAt = &at
	c.UpdatedAt = at
	return nil
}

func (s *InMemoryCaseStore) ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Case
	for _, c := range s.cases {
		for _, st := range statuses {
			if c.Status == st {
				clone := *c
				out = append(out, &clone)
				break
			}
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryCaseStore) ListAll(ctx context.Context) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		clone := *c
		out = append(out, &clone)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(cases []*models.Case) {
	sort.Slice(cases, func(i, j int) bool {
		if cases[i].CreatedAt.Equal(cases[j].CreatedAt) {
			return cases[i].ID.Seq() > cases[j].ID.Seq()
		}
		return cases[i].CreatedAt.After(cases[j].CreatedAt)
	})
}
