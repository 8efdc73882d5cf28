// Package pipeline sequences the processing steps of an address-change case
// as an explicit state machine: ingest, verify, quality, rules, registry
// update, certificate. One background run per case; the case store is the
// only synchronization point between concurrent runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"meldeamt/internal/audit"
	casemodels "meldeamt/internal/caserec/models"
	casestore "meldeamt/internal/caserec/store"
	"meldeamt/internal/certificate"
	"meldeamt/internal/quality"
	"meldeamt/internal/registry"
	"meldeamt/internal/rules"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/platform/sentinel"
)

// Step names, used in audit entries and failure metrics.
const (
	StepIngest      = "ingest"
	StepVerify      = "verify_identity"
	StepQuality     = "quality"
	StepRules       = "rules"
	StepRegistry    = "registry_update"
	StepCertificate = "certificate"
)

// Metrics is the subset of pipeline metrics the runner reports.
type Metrics interface {
	IncCasesIngested()
	IncPipelineFailures(step string)
	ObservePipelineDuration(seconds float64)
}

// Runner drives one case through the pipeline. Each step performs its own
// pause-gate check against the store, so the runner only decides whether to
// continue to the next step.
type Runner struct {
	cases    casestore.CaseStore
	registry *registry.Service
	quality  *quality.Assessor
	rules    *rules.Engine
	certs    *certificate.Service
	recorder *audit.Recorder
	metrics  Metrics
	logger   *slog.Logger
	tracer   trace.Tracer

	// runTimeout bounds one background run; a stuck downstream call fails
	// its own case instead of leaking a goroutine forever.
	runTimeout time.Duration
}

func NewRunner(
	cases casestore.CaseStore,
	registrySvc *registry.Service,
	assessor *quality.Assessor,
	engine *rules.Engine,
	certs *certificate.Service,
	recorder *audit.Recorder,
	metrics Metrics,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cases:      cases,
		registry:   registrySvc,
		quality:    assessor,
		rules:      engine,
		certs:      certs,
		recorder:   recorder,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("meldeamt/pipeline"),
		runTimeout: 5 * time.Minute,
	}
}

// step is one typed pipeline stage. A step returning halt=true stops the run
// without error: the case is paused for a human or was already closed.
type step struct {
	name string
	run  func(ctx context.Context, caseID id.CaseID) (halt bool, err error)
}

func (r *Runner) steps() []step {
	return []step{
		{StepIngest, r.runIngest},
		{StepVerify, r.runVerify},
		{StepQuality, r.runQuality},
		{StepRules, r.runRules},
		{StepRegistry, r.runRegistry},
		{StepCertificate, r.runCertificate},
	}
}

// Start launches a full pipeline run in the background. The caller returns
// immediately; progress is observable only through case status and the audit
// trail.
func (r *Runner) Start(caseID id.CaseID) {
	r.launch(caseID, 0)
}

// Resume continues the pipeline in the background from the business-rules
// step after a human correction. Quality is deliberately not re-run: the
// corrected address is the human's answer to the quality question.
func (r *Runner) Resume(caseID id.CaseID) {
	r.launch(caseID, rulesIndex(r.steps()))
}

// Run executes a full pipeline run synchronously. Start is the fire-and-
// forget wrapper around it.
func (r *Runner) Run(ctx context.Context, caseID id.CaseID) {
	r.run(ctx, caseID, 0)
}

// RunFromRules executes the resumed portion of the pipeline synchronously.
func (r *Runner) RunFromRules(ctx context.Context, caseID id.CaseID) {
	r.run(ctx, caseID, rulesIndex(r.steps()))
}

func rulesIndex(steps []step) int {
	for i, s := range steps {
		if s.name == StepRules {
			return i
		}
	}
	return 0
}

func (r *Runner) launch(caseID id.CaseID, from int) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("pipeline panic",
					slog.String("case_id", string(caseID)),
					slog.Any("panic", rec))
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				r.fail(ctx, caseID, "pipeline", fmt.Errorf("panic: %v", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.runTimeout)
		defer cancel()
		r.run(ctx, caseID, from)
	}()
}

func (r *Runner) run(ctx context.Context, caseID id.CaseID, from int) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("case.id", string(caseID))))
	defer span.End()

	steps := r.steps()
	for _, s := range steps[from:] {
		halt, err := r.runStep(ctx, s, caseID)
		if err != nil {
			// A lost conditional swap means another trigger owns the case or
			// its state already moved on. The duplicate run stops without
			// touching anything.
			if errors.Is(err, sentinel.ErrInvalidState) {
				r.logger.WarnContext(ctx, "pipeline trigger lost state race",
					slog.String("case_id", string(caseID)),
					slog.String("step", s.name),
					slog.String("error", err.Error()))
				return
			}
			span.SetStatus(codes.Error, s.name)
			r.fail(ctx, caseID, s.name, err)
			return
		}
		if halt {
			r.logger.InfoContext(ctx, "pipeline halted",
				slog.String("case_id", string(caseID)),
				slog.String("step", s.name))
			return
		}
	}
	if r.metrics != nil {
		r.metrics.ObservePipelineDuration(time.Since(started).Seconds())
	}
	r.logger.InfoContext(ctx, "pipeline completed", slog.String("case_id", string(caseID)))
}

func (r *Runner) runStep(ctx context.Context, s step, caseID id.CaseID) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline."+s.name)
	defer span.End()

	halt, err := s.run(ctx, caseID)
	if err != nil {
		span.RecordError(err)
	}
	return halt, err
}

// fail transitions the case to ERROR and writes the full error text to the
// audit trail. State is left exactly where the failure occurred; recovery is
// manual re-approval.
func (r *Runner) fail(ctx context.Context, caseID id.CaseID, stepName string, err error) {
	r.logger.ErrorContext(ctx, "pipeline step failed",
		slog.String("case_id", string(caseID)),
		slog.String("step", stepName),
		slog.String("error", err.Error()))
	if r.metrics != nil {
		r.metrics.IncPipelineFailures(stepName)
	}
	if serr := r.cases.UpdateStatus(ctx, caseID, casemodels.StatusError); serr != nil {
		r.logger.ErrorContext(ctx, "error-state transition failed",
			slog.String("case_id", string(caseID)),
			slog.String("error", serr.Error()))
	}
	if aerr := r.recorder.Record(ctx, caseID,
		fmt.Sprintf("Step %s failed: %v", stepName, err)); aerr != nil {
		r.logger.ErrorContext(ctx, "audit write failed",
			slog.String("case_id", string(caseID)),
			slog.String("error", aerr.Error()))
	}
}

func (r *Runner) runIngest(ctx context.Context, caseID id.CaseID) (bool, error) {
	if err := r.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusIngested, casemodels.StatusProcessing); err != nil {
		return false, err
	}
	if r.metrics != nil {
		r.metrics.IncCasesIngested()
	}
	if err := r.recorder.Record(ctx, caseID, "Case ingested, pipeline started"); err != nil {
		return false, err
	}
	return false, nil
}

func (r *Runner) runVerify(ctx context.Context, caseID id.CaseID) (bool, error) {
	_, err := r.registry.VerifyIdentity(ctx, caseID)
	return false, err
}

func (r *Runner) runQuality(ctx context.Context, caseID id.CaseID) (bool, error) {
	c, err := r.cases.Get(ctx, caseID)
	if err != nil {
		return false, err
	}
	res, err := r.quality.Assess(ctx, caseID, c.NewAddressRaw)
	if err != nil {
		return false, err
	}
	return res.Paused || res.NeedsHITL, nil
}

func (r *Runner) runRules(ctx context.Context, caseID id.CaseID) (bool, error) {
	c, err := r.cases.Get(ctx, caseID)
	if err != nil {
		return false, err
	}
	res, err := r.rules.Check(ctx, caseID, c.MoveInDateRaw, documentsOK(c))
	if err != nil {
		return false, err
	}
	return res.Paused || res.NeedsHITL, nil
}

func (r *Runner) runRegistry(ctx context.Context, caseID id.CaseID) (bool, error) {
	c, err := r.cases.Get(ctx, caseID)
	if err != nil {
		return false, err
	}
	status, err := r.registry.Update(ctx, caseID, c.CanonicalAddress)
	if err != nil {
		return false, err
	}
	return status != casemodels.StatusUpdated, nil
}

func (r *Runner) runCertificate(ctx context.Context, caseID id.CaseID) (bool, error) {
	res, err := r.certs.Generate(ctx, caseID)
	if err != nil {
		return false, err
	}
	return res.Paused, nil
}

// documentsOK accepts a case whose documents arrived as a complete pair or
// not at all; a lone upload means the second document went missing.
func documentsOK(c *casemodels.Case) bool {
	return (c.PDFLandlordPath != "") == (c.PDFAddressPath != "")
}
