// Package audit is the append-only history of everything that happens to a
// case. Entries are written by the pipeline and services, streamed live via
// the broadcast hub and relayed to Kafka through the outbox.
package audit

import (
	"time"

	id "meldeamt/pkg/domain"
)

// Entry is one immutable audit line for a case.
type Entry struct {
	ID        int64     `json:"id"`
	CaseID    id.CaseID `json:"case_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
