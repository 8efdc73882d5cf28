// Package store persists learned address-correction patterns.
package store

import (
	"context"
	"time"

	"meldeamt/internal/patterns/models"
	id "meldeamt/pkg/domain"
)

// ResolutionStore persists learned patterns. (Pattern, Type) is the natural
// key: Upsert never produces duplicate rows for the same pair.
type ResolutionStore interface {
	// Upsert inserts a new pattern with frequency 1, or, when (pattern, type)
	// already exists, increments its frequency and overwrites the corrected
	// value. Returns the row's identifier either way.
	Upsert(ctx context.Context, pattern, corrected string, t models.ResolutionType, now time.Time) (id.ResolutionID, error)

	// ListAll returns every pattern, longest pattern first, then by
	// descending frequency.
	ListAll(ctx context.Context) ([]models.Resolution, error)

	// Touch updates last_used_at for the given patterns after they fired.
	Touch(ctx context.Context, ids []id.ResolutionID, at time.Time) error
}
