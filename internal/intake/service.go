// Package intake is the case-facing application service: it accepts new
// address-change requests, hands approved cases to the pipeline, and applies
// human corrections to paused cases.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"meldeamt/internal/audit"
	casemodels "meldeamt/internal/caserec/models"
	casestore "meldeamt/internal/caserec/store"
	"meldeamt/internal/patterns"
	"meldeamt/internal/pipeline"
	id "meldeamt/pkg/domain"
	dErrors "meldeamt/pkg/domain-errors"
	"meldeamt/pkg/email"
	"meldeamt/pkg/platform/sentinel"
	"meldeamt/pkg/requestcontext"
)

// Metrics is the subset of pipeline metrics the intake service reports.
type Metrics interface {
	IncHITLResolved()
}

// TxRunner runs a function inside one database transaction. Nil disables
// transactional intake; the in-memory stores used in tests don't need it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service coordinates case intake and the human review loop.
type Service struct {
	cases    casestore.CaseStore
	recorder *audit.Recorder
	patterns *patterns.Service
	runner   *pipeline.Runner
	txr      TxRunner
	metrics  Metrics
	logger   *slog.Logger
}

func NewService(cases casestore.CaseStore, recorder *audit.Recorder, patternSvc *patterns.Service, runner *pipeline.Runner, txr TxRunner, metrics Metrics, logger *slog.Logger) *Service {
	return &Service{cases: cases, recorder: recorder, patterns: patternSvc, runner: runner, txr: txr, metrics: metrics, logger: logger}
}

// inTx runs fn transactionally when a runner is configured.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txr == nil {
		return fn(ctx)
	}
	return s.txr.InTx(ctx, fn)
}

// Submission is the citizen-provided intake data.
type Submission struct {
	CitizenName  string
	DOB          string
	Email        string
	OldAddress   string
	NewAddress   string
	MoveInDate   string
	LandlordName string
	PDFLandlord  string
	PDFAddress   string
}

// Submit creates a new case awaiting employee approval. A missing citizen
// name is derived from the email address.
func (s *Service) Submit(ctx context.Context, sub Submission) (*casemodels.Case, error) {
	name := sub.CitizenName
	if name == "" {
		first, last := email.DeriveNameFromEmail(sub.Email)
		name = first + " " + last
	}

	now := requestcontext.Now(ctx)
	c, err := casemodels.NewCase(name, sub.DOB, sub.Email, sub.OldAddress,
		sub.NewAddress, sub.MoveInDate, sub.LandlordName, casemodels.StatusPendingApproval, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid submission")
	}
	c.SubmittedAt = &now
	c.PDFLandlordPath = sub.PDFLandlord
	c.PDFAddressPath = sub.PDFAddress

	// The case row and its first audit entry land together or not at all.
	err = s.inTx(ctx, func(ctx context.Context) error {
		caseID, err := s.cases.Create(ctx, c)
		if err != nil {
			return err
		}
		return s.recorder.Record(ctx, caseID, fmt.Sprintf("Case submitted by %s", c.Email))
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "case submitted",
		slog.String("case_id", string(c.ID)),
		slog.String("email", c.Email))
	return c, nil
}

// Approve moves a pending (or errored) case into processing and starts the
// pipeline in the background. A duplicate approval click loses the
// conditional swap and is rejected with a conflict.
func (s *Service) Approve(ctx context.Context, caseID id.CaseID) error {
	err := s.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusProcessing,
		casemodels.StatusPendingApproval, casemodels.StatusError)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "case is not awaiting approval")
	}
	if err != nil {
		return err
	}
	if err := s.cases.MarkApproved(ctx, caseID, requestcontext.Now(ctx)); err != nil {
		return err
	}

	employee := requestcontext.Employee(ctx)
	msg := "Case approved"
	if employee != "" {
		msg = "Case approved by " + employee
	}
	if err := s.recorder.Record(ctx, caseID, msg); err != nil {
		return err
	}

	s.runner.Start(caseID)
	return nil
}

// ResolveHITL accepts a human's corrected address for a paused case: the
// case returns to QUALITY_OK, the diff against the original raw address
// feeds the pattern memory, and the pipeline resumes from the business-rules
// step in the background.
func (s *Service) ResolveHITL(ctx context.Context, caseID id.CaseID, correctedAddress string) error {
	if correctedAddress == "" {
		return dErrors.New(dErrors.CodeValidation, "corrected address cannot be empty")
	}

	c, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return err
	}

	err = s.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusQualityOK, casemodels.StatusWaitingForHuman)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "case is not waiting for human review")
	}
	if err != nil {
		return err
	}
	if err := s.cases.SetCanonicalAddress(ctx, caseID, correctedAddress); err != nil {
		return err
	}

	employee := requestcontext.Employee(ctx)
	msg := fmt.Sprintf("Human correction accepted: %q", correctedAddress)
	if employee != "" {
		msg = fmt.Sprintf("Human correction accepted from %s: %q", employee, correctedAddress)
	}
	if err := s.recorder.Record(ctx, caseID, msg); err != nil {
		return err
	}

	learned, err := s.patterns.LearnFromCorrection(ctx, c.NewAddressRaw, correctedAddress)
	if err != nil {
		return err
	}
	for _, p := range learned {
		if err := s.recorder.Record(ctx, caseID, fmt.Sprintf(
			"Pattern learned: %q -> %q (%s)", p.Pattern, p.Corrected, p.Type)); err != nil {
			return err
		}
	}
	if s.metrics != nil {
		s.metrics.IncHITLResolved()
	}

	s.runner.Resume(caseID)
	return nil
}
