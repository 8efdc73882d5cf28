// Package models holds the address-change case aggregate and its status
// machine.
package models

import (
	"time"

	id "meldeamt/pkg/domain"
	dErrors "meldeamt/pkg/domain-errors"
)

// Status is the single source of truth for a case's pipeline position.
type Status string

const (
	// Intake-side states set by the submission path before any pipeline run.
	StatusPendingReview   Status = "PENDING_REVIEW"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusProcessing      Status = "PROCESSING"

	// Pipeline states.
	StatusIngested        Status = "INGESTED"
	StatusQualityOK       Status = "QUALITY_OK"
	StatusWaitingForHuman Status = "WAITING_FOR_HUMAN"
	StatusRulesPassed     Status = "RULES_PASSED"
	StatusUpdated         Status = "UPDATED"
	StatusClosed          Status = "CLOSED"

	// StatusError is reachable from any non-terminal state on unrecoverable
	// failure. Recovery is manual re-approval, never automatic.
	StatusError Status = "ERROR"
)

// transitions encodes the forward edges of the status machine. ERROR is
// handled separately because it is reachable from everywhere.
var transitions = map[Status][]Status{
	StatusPendingReview:   {StatusPendingApproval},
	StatusPendingApproval: {StatusProcessing},
	StatusProcessing:      {StatusIngested},
	StatusIngested:        {StatusQualityOK, StatusWaitingForHuman},
	StatusQualityOK:       {StatusRulesPassed, StatusWaitingForHuman},
	StatusWaitingForHuman: {StatusQualityOK},
	StatusRulesPassed:     {StatusUpdated},
	StatusUpdated:         {StatusClosed},
	// Manual retry restarts the pipeline from the top.
	StatusError: {StatusProcessing},
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s Status) CanTransitionTo(next Status) bool {
	if next == StatusError {
		return !s.IsTerminal()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further pipeline work is expected.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingReview, StatusPendingApproval, StatusProcessing,
		StatusIngested, StatusQualityOK, StatusWaitingForHuman,
		StatusRulesPassed, StatusUpdated, StatusClosed, StatusError:
		return true
	}
	return false
}

// Case is the aggregate root for one citizen's address-change request.
//
// Invariants:
//   - ID is unique and immutable once assigned by the store
//   - CanonicalAddress is only set by the quality step or human correction
//   - Status transitions are monotonic along the pipeline except for the
//     WAITING_FOR_HUMAN detour and the ERROR escape hatch
//   - Cases are never deleted; history lives in the audit trail
type Case struct {
	ID               id.CaseID  `json:"case_id"`
	CitizenName      string     `json:"citizen_name"`
	DOB              string     `json:"dob"`
	Email            string     `json:"email"`
	OldAddressRaw    string     `json:"old_address_raw"`
	NewAddressRaw    string     `json:"new_address_raw"`
	MoveInDateRaw    string     `json:"move_in_date_raw"`
	LandlordName     string     `json:"landlord_name,omitempty"`
	CanonicalAddress string     `json:"canonical_address,omitempty"`
	RegistryExists   *bool      `json:"registry_exists,omitempty"`
	Status           Status     `json:"status"`
	AssignedTo       string     `json:"assigned_to,omitempty"`
	Analysis         string     `json:"analysis,omitempty"`
	PDFLandlordPath  string     `json:"pdf_landlord_path,omitempty"`
	PDFAddressPath   string     `json:"pdf_address_change_path,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewCase validates intake data and builds a case in the given intake status.
// The store assigns the ID on insert.
func NewCase(citizenName, dob, email, oldAddr, newAddr, moveInDate, landlord string, status Status, now time.Time) (*Case, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case email cannot be empty")
	}
	if newAddr == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case new address cannot be empty")
	}
	if !status.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown case status %q", status)
	}
	return &Case{
		CitizenName:   citizenName,
		DOB:           dob,
		Email:         email,
		OldAddressRaw: oldAddr,
		NewAddressRaw: newAddr,
		MoveInDateRaw: moveInDate,
		LandlordName:  landlord,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsPaused reports whether downstream pipeline steps must skip this case.
func (c *Case) IsPaused() bool {
	return c.Status == StatusWaitingForHuman
}
