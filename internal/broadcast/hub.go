// Package broadcast fans audit events out to live subscribers, backing the
// server-sent events stream in the employee UI.
package broadcast

import (
	"sync"
	"time"
)

// Event is one audit line pushed to live subscribers.
type Event struct {
	CaseID    string    `json:"case_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub delivers events to every subscriber. Publishing never blocks: a
// subscriber whose buffer is full misses the event and catches up from the
// audit trail on reconnect.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	buf  int
}

// NewHub creates a hub whose subscriber channels buffer up to buf events.
func NewHub(buf int) *Hub {
	if buf <= 0 {
		buf = 16
	}
	return &Hub{subs: make(map[chan Event]struct{}), buf: buf}
}

// Subscribe registers a new subscriber and returns its event channel.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, h.buf)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers e to all current subscribers, dropping it for any
// subscriber that cannot keep up.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
