package outbox

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps outbox messages in memory. Used as the fake in relay
// tests and for deployments without Kafka.
type InMemoryStore struct {
	mu        sync.Mutex
	seq       int64
	pending   []Message
	published map[int64]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{published: make(map[int64]bool)}
}

func (s *InMemoryStore) Enqueue(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	p := make([]byte, len(payload))
	copy(p, payload)
	s.pending = append(s.pending, Message{
		ID:        s.seq,
		Key:       key,
		Payload:   p,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *InMemoryStore) FetchUnpublished(ctx context.Context, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for _, m := range s.pending {
		if s.published[m.ID] {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.published[id] = true
	}
	return nil
}
