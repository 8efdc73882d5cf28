// Package quality scores the likely correctness of a raw new-address string
// and decides whether a human must review it before the pipeline continues.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"meldeamt/internal/audit"
	casemodels "meldeamt/internal/caserec/models"
	casestore "meldeamt/internal/caserec/store"
	"meldeamt/internal/patterns"
	patternmodels "meldeamt/internal/patterns/models"
	id "meldeamt/pkg/domain"
)

// Confidence levels per street-name classification. The pattern boost never
// lifts a score past boostCap, so a boosted incomplete address still lands
// under the full-suffix level.
const (
	confidenceIncomplete = 0.60
	confidenceUnclear    = 0.75
	confidenceComplete   = 0.90

	patternBoost  = 0.10
	boostCap      = 0.85
	hitlThreshold = 0.80
)

// Result is the outcome of one quality assessment.
type Result struct {
	Canonical  string                  `json:"canonical_address"`
	Confidence float64                 `json:"confidence"`
	NeedsHITL  bool                    `json:"needs_hitl"`
	HITLTaskID string                  `json:"hitl_task_id,omitempty"`
	Applied    []patternmodels.Applied `json:"applied_patterns,omitempty"`
	Paused     bool                    `json:"paused,omitempty"`
}

// Metrics is the subset of pipeline metrics the assessor reports.
type Metrics interface {
	IncHITLTriggered(step string)
}

// Assessor runs the deterministic quality check: replay learned corrections,
// classify street-name completeness, score, and gate on the confidence
// threshold. Every intermediate decision lands in the audit trail because
// the review UI explains HITL pauses from it.
type Assessor struct {
	cases    casestore.CaseStore
	patterns *patterns.Service
	recorder *audit.Recorder
	metrics  Metrics
	logger   *slog.Logger
}

func NewAssessor(cases casestore.CaseStore, patterns *patterns.Service, recorder *audit.Recorder, metrics Metrics, logger *slog.Logger) *Assessor {
	return &Assessor{cases: cases, patterns: patterns, recorder: recorder, metrics: metrics, logger: logger}
}

// Assess scores the raw address for the given case and persists the outcome:
// canonical address plus either QUALITY_OK or WAITING_FOR_HUMAN. Returns a
// paused result without touching the case when it is already waiting for a
// human.
func (a *Assessor) Assess(ctx context.Context, caseID id.CaseID, rawAddress string) (*Result, error) {
	c, err := a.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.IsPaused() {
		if err := a.recorder.Record(ctx, caseID, "Quality check skipped: case is waiting for human review"); err != nil {
			return nil, err
		}
		return &Result{Paused: true}, nil
	}

	corrected, applied, err := a.patterns.ApplyLearned(ctx, rawAddress)
	if err != nil {
		return nil, err
	}
	for _, p := range applied {
		if err := a.recorder.Record(ctx, caseID, fmt.Sprintf(
			"Learned pattern applied: %q -> %q (%s)", p.Original, p.Corrected, p.Type)); err != nil {
			return nil, err
		}
	}

	confidence, branch := classifyStreet(corrected)
	if err := a.recorder.Record(ctx, caseID, fmt.Sprintf(
		"Address classified as %s (confidence %.2f)", branch, confidence)); err != nil {
		return nil, err
	}

	if len(applied) > 0 && confidence < confidenceComplete {
		boosted := confidence + patternBoost
		if boosted > boostCap {
			boosted = boostCap
		}
		if err := a.recorder.Record(ctx, caseID, fmt.Sprintf(
			"Confidence boosted %.2f -> %.2f: learned patterns fired", confidence, boosted)); err != nil {
			return nil, err
		}
		confidence = boosted
	}

	result := &Result{
		Canonical:  titleCase(corrected),
		Confidence: confidence,
		NeedsHITL:  confidence < hitlThreshold,
		Applied:    applied,
	}

	if err := a.cases.SetCanonicalAddress(ctx, caseID, result.Canonical); err != nil {
		return nil, err
	}

	if result.NeedsHITL {
		result.HITLTaskID = "HITL-" + string(caseID)
		if err := a.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusWaitingForHuman, casemodels.StatusIngested); err != nil {
			return nil, err
		}
		if a.metrics != nil {
			a.metrics.IncHITLTriggered("quality")
		}
		if err := a.recorder.Record(ctx, caseID, fmt.Sprintf(
			"Human review required (confidence %.2f < %.2f), task %s", confidence, hitlThreshold, result.HITLTaskID)); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := a.cases.UpdateStatusIf(ctx, caseID, casemodels.StatusQualityOK, casemodels.StatusIngested); err != nil {
		return nil, err
	}
	if err := a.recorder.Record(ctx, caseID, fmt.Sprintf(
		"Quality check passed (confidence %.2f), canonical address %q", confidence, result.Canonical)); err != nil {
		return nil, err
	}
	return result, nil
}

// classifyStreet buckets the corrected address by street-name completeness.
// An empty or garbage address deliberately falls into the unclear bucket
// instead of erroring; the 0.75 score keeps it under human eyes only when
// no pattern boost applies.
func classifyStreet(address string) (float64, string) {
	for _, token := range tokenize(address) {
		lower := strings.ToLower(token)
		if strings.HasSuffix(lower, "str") {
			return confidenceIncomplete, "incomplete street name"
		}
	}
	for _, token := range tokenize(address) {
		if hasFullStreetSuffix(token) {
			return confidenceComplete, "complete street name"
		}
	}
	return confidenceUnclear, "unclear format"
}

var fullStreetSuffixes = []string{
	"straße", "strasse", "weg", "platz", "allee",
	"ring", "damm", "ufer", "gasse", "steig", "pfad",
}

func hasFullStreetSuffix(token string) bool {
	lower := strings.ToLower(token)
	for _, suffix := range fullStreetSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// titleCase capitalizes the first letter of each word and lowercases the
// rest. Tokens starting with a digit, like house number "12a", are left
// untouched.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inWord := false
	wordStart := true
	digitLed := false
	for _, r := range s {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		if !isWord {
			b.WriteRune(r)
			inWord = false
			continue
		}
		if !inWord {
			inWord = true
			wordStart = true
			digitLed = unicode.IsDigit(r)
		}
		switch {
		case digitLed:
			b.WriteRune(r)
		case wordStart:
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
		wordStart = false
	}
	return b.String()
}
