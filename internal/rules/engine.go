// Package rules validates a case against municipal plausibility rules:
// move-in date window, canonical address format, and document presence.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"meldeamt/internal/audit"
	casemodels "meldeamt/internal/caserec/models"
	casestore "meldeamt/internal/caserec/store"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/requestcontext"
)

// Move-in dates may lie up to a year in the past (late registration) and a
// month in the future (advance registration).
const (
	maxDaysPast   = 365
	maxDaysFuture = 30
)

// Rule outcome strings, surfaced verbatim in rule results and audit entries.
const (
	OutcomeOK               = "ok"
	OutcomeSuspicious       = "suspicious"
	OutcomeInvalidFormat    = "invalid_format"
	OutcomeInvalidAddress   = "invalid_address_format"
	OutcomeMissingDocuments = "missing_or_invalid"
)

// Result is the outcome of one business-rules check.
type Result struct {
	Passed      bool              `json:"passed"`
	NeedsHITL   bool              `json:"needs_hitl"`
	HITLTaskID  string            `json:"hitl_task_id,omitempty"`
	RuleResults map[string]string `json:"rule_results"`
	Paused      bool              `json:"paused,omitempty"`
}

// Metrics is the subset of pipeline metrics the engine reports.
type Metrics interface {
	IncHITLTriggered(step string)
}

// Engine evaluates the rules independently; every failing rule contributes
// to the HITL decision, and all outcomes are reported even when an early
// rule already failed.
type Engine struct {
	cases    casestore.CaseStore
	recorder *audit.Recorder
	metrics  Metrics
	logger   *slog.Logger
}

func NewEngine(cases casestore.CaseStore, recorder *audit.Recorder, metrics Metrics, logger *slog.Logger) *Engine {
	return &Engine{cases: cases, recorder: recorder, metrics: metrics, logger: logger}
}

// Check validates the case's move-in date, canonical address, and document
// flag. The canonical address comes from the store, so a human correction
// applied between quality and rules is always honored. Returns a paused
// result without evaluating anything when the case is already waiting for a
// human.
func (e *Engine) Check(ctx context.Context, caseID id.CaseID, moveInDate string, documentsOK bool) (*Result, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.IsPaused() {
		if err := e.recorder.Record(ctx, caseID, "Business rules skipped: case is waiting for human review"); err != nil {
			return nil, err
		}
		return &Result{Paused: true}, nil
	}

	result := &Result{
		RuleResults: map[string]string{
			"move_in_date":   e.checkMoveInDate(ctx, moveInDate),
			"address_format": checkAddressFormat(c.CanonicalAddress),
			"documents":      checkDocuments(documentsOK),
		},
	}
	// Fixed order keeps the audit trail stable across runs.
	for _, name := range []string{"move_in_date", "address_format", "documents"} {
		outcome := result.RuleResults[name]
		if err := e.recorder.Record(ctx, caseID, fmt.Sprintf("Rule %s: %s", name, outcome)); err != nil {
			return nil, err
		}
		if outcome != OutcomeOK {
			result.NeedsHITL = true
		}
	}

	if result.NeedsHITL {
		result.HITLTaskID = "HITL-RULES-" + string(caseID)
		if err := e.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusWaitingForHuman, casemodels.StatusQualityOK); err != nil {
			return nil, err
		}
		if e.metrics != nil {
			e.metrics.IncHITLTriggered("rules")
		}
		if err := e.recorder.Record(ctx, caseID,
			"Business rules failed, human review required, task "+result.HITLTaskID); err != nil {
			return nil, err
		}
		return result, nil
	}

	result.Passed = true
	if err := e.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusRulesPassed, casemodels.StatusQualityOK); err != nil {
		return nil, err
	}
	if err := e.recorder.Record(ctx, caseID, "Business rules passed"); err != nil {
		return nil, err
	}
	return result, nil
}

// checkMoveInDate parses the raw date and validates it against the allowed
// window around today.
func (e *Engine) checkMoveInDate(ctx context.Context, raw string) string {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return OutcomeInvalidFormat
	}
	now := requestcontext.Now(ctx)
	days := parsed.Sub(now).Hours() / 24
	if days < -maxDaysPast || days > maxDaysFuture {
		return OutcomeSuspicious
	}
	return OutcomeOK
}

// checkAddressFormat requires the canonical address to carry both a comma
// and at least one digit.
func checkAddressFormat(canonical string) string {
	if !strings.Contains(canonical, ",") {
		return OutcomeInvalidAddress
	}
	for _, r := range canonical {
		if unicode.IsDigit(r) {
			return OutcomeOK
		}
	}
	return OutcomeInvalidAddress
}

func checkDocuments(ok bool) string {
	if !ok {
		return OutcomeMissingDocuments
	}
	return OutcomeOK
}
