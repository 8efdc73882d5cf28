// Package store persists address-change cases.
package store

import (
	"context"
	"time"

	"meldeamt/internal/caserec/models"
	id "meldeamt/pkg/domain"
)

// CaseStore is the persistence contract for cases. Implementations return
// sentinel.ErrNotFound for unknown case IDs and sentinel.ErrInvalidState for
// a lost compare-and-swap.
//
// The store is the sole synchronization point between concurrent pipeline
// runs: every conditional transition goes through UpdateStatusIf so the
// "skip if already waiting for a human" gate is race-free.
type CaseStore interface {
	// Create inserts a case and assigns its sequence-backed identifier,
	// stamping it on c.ID as well as returning it.
	Create(ctx context.Context, c *models.Case) (id.CaseID, error)

	Get(ctx context.Context, caseID id.CaseID) (*models.Case, error)

	// UpdateStatus unconditionally sets the status column.
	UpdateStatus(ctx context.Context, caseID id.CaseID, status models.Status) error

	// UpdateStatusIf atomically sets the status to `to` only when the current
	// status is one of `from`. Returns sentinel.ErrInvalidState when the swap
	// is lost, so duplicate triggers for the same case fail cleanly.
	UpdateStatusIf(ctx context.Context, caseID id.CaseID, to models.Status, from ...models.Status) error

	SetCanonicalAddress(ctx context.Context, caseID id.CaseID, canonical string) error

	SetRegistryExists(ctx context.Context, caseID id.CaseID, exists bool) error

	// MarkApproved sets status PROCESSING and stamps approved_at.
	MarkApproved(ctx context.Context, caseID id.CaseID, at time.Time) error

	// ListByStatus returns cases in any of the given statuses, newest first.
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Case, error)

	// ListAll returns every case, newest first. Used by the CSV export.
	ListAll(ctx context.Context) ([]*models.Case, error)
}
