// Package registry models the municipal resident register: identity
// verification on intake and the legally meaningful address update at the
// end of the pipeline.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"meldeamt/internal/audit"
	casemodels "meldeamt/internal/caserec/models"
	casestore "meldeamt/internal/caserec/store"
	id "meldeamt/pkg/domain"
)

// Service talks to the resident register. The register itself is simulated:
// verification is a deterministic heuristic so demo data behaves
// predictably.
type Service struct {
	cases    casestore.CaseStore
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(cases casestore.CaseStore, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{cases: cases, recorder: recorder, logger: logger}
}

// VerifyIdentity checks whether the citizen exists in the register and
// persists the flag on the case. Names starting with "test" are treated as
// unknown.
func (s *Service) VerifyIdentity(ctx context.Context, caseID id.CaseID) (bool, error) {
	c, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return false, err
	}

	exists := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(c.CitizenName)), "test")
	if err := s.cases.SetRegistryExists(ctx, caseID, exists); err != nil {
		return false, err
	}

	msg := fmt.Sprintf("Identity verified: %q found in resident register", c.CitizenName)
	if !exists {
		msg = fmt.Sprintf("Identity check: %q not found in resident register", c.CitizenName)
	}
	if err := s.recorder.Record(ctx, caseID, msg); err != nil {
		return false, err
	}
	return exists, nil
}

// Update writes the new address to the register and moves the case to
// UPDATED. Gated by the human-review pause like every downstream step.
func (s *Service) Update(ctx context.Context, caseID id.CaseID, newAddress string) (casemodels.Status, error) {
	c, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return "", err
	}
	if c.IsPaused() {
		if err := s.recorder.Record(ctx, caseID, "Registry update skipped: case is waiting for human review"); err != nil {
			return "", err
		}
		return c.Status, nil
	}

	if err := s.cases.SetCanonicalAddress(ctx, caseID, newAddress); err != nil {
		return "", err
	}
	if err := s.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusUpdated, casemodels.StatusRulesPassed); err != nil {
		return "", err
	}
	if err := s.recorder.Record(ctx, caseID, fmt.Sprintf("Resident register updated with address %q", newAddress)); err != nil {
		return "", err
	}
	return casemodels.StatusUpdated, nil
}
