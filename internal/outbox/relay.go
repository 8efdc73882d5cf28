package outbox

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Relay periodically drains the outbox into the broker. Delivery is
// at-least-once: a message is marked published only after the broker
// acknowledged it, so a crash between produce and mark replays the message.
type Relay struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewRelay(store Store, publisher Publisher, logger *slog.Logger) *Relay {
	return &Relay{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
}

// Run drains the outbox until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "outbox drain failed", slog.String("error", err.Error()))
			}
		}
	}
}

// DrainOnce publishes one batch of pending messages.
func (r *Relay) DrainOnce(ctx context.Context) error {
	messages, err := r.store.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	delivered := make([]int64, 0, len(messages))
	for _, m := range messages {
		if err := r.publisher.Publish(ctx, m.Key, m.Payload); err != nil {
			// Stop at the first failure to preserve per-case ordering.
			r.logger.WarnContext(ctx, "outbox publish failed",
				slog.Int64("message_id", m.ID),
				slog.String("error", err.Error()))
			break
		}
		delivered = append(delivered, m.ID)
	}
	if len(delivered) == 0 {
		return nil
	}
	return r.store.MarkPublished(ctx, delivered)
}
