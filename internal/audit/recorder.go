package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"meldeamt/internal/broadcast"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/requestcontext"
)

// Enqueuer hands audit entries to the transactional outbox for asynchronous
// delivery to Kafka.
type Enqueuer interface {
	Enqueue(ctx context.Context, key string, payload []byte) error
}

// Recorder captures audit entries. Persistence is the source of truth; the
// live stream and the outbox are best-effort fan-outs and never fail a
// recording.
type Recorder struct {
	store  Store
	hub    *broadcast.Hub
	outbox Enqueuer
	logger *slog.Logger
}

// NewRecorder builds a recorder. hub and outbox may be nil, in which case the
// corresponding fan-out is skipped.
func NewRecorder(store Store, hub *broadcast.Hub, outbox Enqueuer, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, hub: hub, outbox: outbox, logger: logger}
}

// Record appends a message to the case's audit trail.
func (r *Recorder) Record(ctx context.Context, caseID id.CaseID, message string) error {
	e := Entry{
		CaseID:    caseID,
		Timestamp: requestcontext.Now(ctx),
		Message:   message,
	}
	if err := r.store.Append(ctx, &e); err != nil {
		return err
	}

	if r.hub != nil {
		r.hub.Publish(broadcast.Event{
			CaseID:    string(e.CaseID),
			Message:   e.Message,
			Timestamp: e.Timestamp,
		})
	}
	if r.outbox != nil {
		payload, err := json.Marshal(e)
		if err == nil {
			err = r.outbox.Enqueue(ctx, string(e.CaseID), payload)
		}
		if err != nil {
			r.logger.WarnContext(ctx, "audit outbox enqueue failed",
				slog.String("case_id", string(e.CaseID)),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// List returns the full audit trail for a case, oldest first.
func (r *Recorder) List(ctx context.Context, caseID id.CaseID) ([]Entry, error) {
	return r.store.ListByCase(ctx, caseID)
}
