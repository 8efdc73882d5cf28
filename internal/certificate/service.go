// Package certificate renders the registration certificate and delivers it
// to the citizen. The registry update is the legally meaningful action, so
// the case closes even when rendering output cannot be delivered.
package certificate

import (
	"context"
	"fmt"
	"log/slog"

	"meldeamt/internal/audit"
	casemodels "meldeamt/internal/caserec/models"
	casestore "meldeamt/internal/caserec/store"
	id "meldeamt/pkg/domain"
)

// Renderer produces the certificate artifact for a case and returns its
// storage path.
type Renderer interface {
	Render(ctx context.Context, c *casemodels.Case) (string, error)
}

// Mailer delivers the certificate to the citizen.
type Mailer interface {
	Send(ctx context.Context, to, subject, body, attachmentPath string) error
}

// Metrics is the subset of pipeline metrics the certificate step reports.
type Metrics interface {
	IncCertificatesSent(outcome string)
}

// Result is the outcome of the certificate step.
type Result struct {
	Path        string            `json:"path,omitempty"`
	EmailStatus string            `json:"email_status"`
	CaseStatus  casemodels.Status `json:"case_status"`
	Paused      bool              `json:"paused,omitempty"`
}

// Service runs the final pipeline step.
type Service struct {
	cases    casestore.CaseStore
	recorder *audit.Recorder
	renderer Renderer
	mailer   Mailer
	metrics  Metrics
	logger   *slog.Logger
}

func NewService(cases casestore.CaseStore, recorder *audit.Recorder, renderer Renderer, mailer Mailer, metrics Metrics, logger *slog.Logger) *Service {
	return &Service{cases: cases, recorder: recorder, renderer: renderer, mailer: mailer, metrics: metrics, logger: logger}
}

// Generate renders the certificate, attempts email delivery, and closes the
// case. Delivery failure is recorded in the audit trail but never blocks
// closure. Gated by the human-review pause like every downstream step.
func (s *Service) Generate(ctx context.Context, caseID id.CaseID) (*Result, error) {
	c, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.IsPaused() {
		if err := s.recorder.Record(ctx, caseID, "Certificate generation skipped: case is waiting for human review"); err != nil {
			return nil, err
		}
		return &Result{Paused: true, CaseStatus: c.Status}, nil
	}

	path, err := s.renderer.Render(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	if err := s.recorder.Record(ctx, caseID, fmt.Sprintf("Certificate rendered: %s", path)); err != nil {
		return nil, err
	}

	emailStatus := "sent"
	subject := "Ihre Anmeldebestätigung - " + string(caseID)
	body := fmt.Sprintf("Sehr geehrte/r %s,\n\nIhre Adressänderung wurde erfolgreich bearbeitet.\nNeue Adresse: %s\n\nMit freundlichen Grüßen\nIhr Bürgeramt",
		c.CitizenName, c.CanonicalAddress)
	if err := s.mailer.Send(ctx, c.Email, subject, body, path); err != nil {
		emailStatus = "failed"
		s.logger.WarnContext(ctx, "certificate delivery failed",
			slog.String("case_id", string(caseID)),
			slog.String("error", err.Error()))
		if err := s.recorder.Record(ctx, caseID, fmt.Sprintf("Certificate delivery failed: %v", err)); err != nil {
			return nil, err
		}
	} else {
		if err := s.recorder.Record(ctx, caseID, "Certificate delivered to "+c.Email); err != nil {
			return nil, err
		}
	}
	if s.metrics != nil {
		s.metrics.IncCertificatesSent(emailStatus)
	}

	if err := s.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusClosed, casemodels.StatusUpdated); err != nil {
		return nil, err
	}
	if err := s.recorder.Record(ctx, caseID, "Case closed"); err != nil {
		return nil, err
	}

	return &Result{Path: path, EmailStatus: emailStatus, CaseStatus: casemodels.StatusClosed}, nil
}
