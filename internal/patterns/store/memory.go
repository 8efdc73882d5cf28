package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"meldeamt/internal/patterns/models"
	id "meldeamt/pkg/domain"
)

type patternKey struct {
	pattern string
	typ     models.ResolutionType
}

// InMemoryResolutionStore implements ResolutionStore with a mutex-guarded
// map. Used as the fake in quality and learning tests.
type InMemoryResolutionStore struct {
	mu   sync.RWMutex
	seq  int64
	rows map[patternKey]*models.Resolution
}

func NewInMemoryResolutionStore() *InMemoryResolutionStore {
	return &InMemoryResolutionStore{rows: make(map[patternKey]*models.Resolution)}
}

func (s *InMemoryResolutionStore) Upsert(ctx context.Context, pattern, corrected string, t models.ResolutionType, now time.Time) (id.ResolutionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := patternKey{pattern: pattern, typ: t}
	if existing, ok := s.rows[key]; ok {
		existing.Frequency++
		existing.Corrected = corrected
		existing.LastUsedAt = now
		return existing.ID, nil
	}

	s.seq++
	r := &models.Resolution{
		ID:         id.ResolutionID(s.seq),
		Pattern:    pattern,
		Corrected:  corrected,
		Type:       t,
		Frequency:  1,
		LastUsedAt: now,
	}
	s.rows[key] = r
	return r.ID, nil
}

func (s *InMemoryResolutionStore) ListAll(ctx context.Context) ([]models.Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Resolution, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Pattern) != len(out[j].Pattern) {
			return len(out[i].Pattern) > len(out[j].Pattern)
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryResolutionStore) Touch(ctx context.Context, ids []id.ResolutionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows {
		for _, rid := range ids {
			if r.ID == rid {
				r.LastUsedAt = at
				break
			}
		}
	}
	return nil
}
