package audit

import (
	"context"

	id "meldeamt/pkg/domain"
)

// Store persists audit entries. Entries are append-only; nothing updates or
// deletes them.
type Store interface {
	// Append inserts the entry and fills in its assigned ID.
	Append(ctx context.Context, e *Entry) error

	// ListByCase returns all entries for a case in chronological order.
	ListByCase(ctx context.Context, caseID id.CaseID) ([]Entry, error)
}
