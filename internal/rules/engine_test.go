package rules

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meldeamt/internal/audit"
	casemodels "meldeamt/internal/caserec/models"
	casestore "meldeamt/internal/caserec/store"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/requestcontext"
)

var testNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine   *Engine
	cases    *casestore.InMemoryCaseStore
	auditLog *audit.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	cases := casestore.NewInMemoryCaseStore()
	auditStore := audit.NewInMemoryStore()
	return &fixture{
		engine:   NewEngine(cases, audit.NewRecorder(auditStore, nil, nil, logger), nil, logger),
		cases:    cases,
		auditLog: auditStore,
	}
}

func (f *fixture) qualityOKCase(t *testing.T, canonical string) id.CaseID {
	t.Helper()
	ctx := context.Background()
	c, err := casemodels.NewCase("Max Mustermann", "1990-05-01", "max@example.com",
		"", "raw", "2025-02-10", "", casemodels.StatusQualityOK, testNow)
	require.NoError(t, err)
	caseID, err := f.cases.Create(ctx, c)
	require.NoError(t, err)
	require.NoError(t, f.cases.SetCanonicalAddress(ctx, caseID, canonical))
	return caseID
}

func TestEngine_AllRulesPass(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithTime(context.Background(), testNow)
	caseID := f.qualityOKCase(t, "Hauptstraße 5, 10115 Berlin")

	// 10 days in the future.
	res, err := f.engine.Check(ctx, caseID, "2025-02-11", true)
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.False(t, res.NeedsHITL)
	assert.Equal(t, map[string]string{
		"move_in_date":   "ok",
		"address_format": "ok",
		"documents":      "ok",
	}, res.RuleResults)

	c, err := f.cases.Get(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, casemodels.StatusRulesPassed, c.Status)
}

func TestEngine_MoveInDate(t *testing.T) {
	tests := []struct {
		name string
		date string
		want string
	}{
		{"10 days ahead", "2025-02-11", "ok"},
		{"400 days ahead", "2026-03-08", "suspicious"},
		{"just inside the past window", "2024-02-10", "ok"},
		{"far in the past", "2023-01-01", "suspicious"},
		{"unparseable", "soon", "invalid_format"},
		{"empty", "", "invalid_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := requestcontext.WithTime(context.Background(), testNow)
			caseID := f.qualityOKCase(t, "Hauptstraße 5, 10115 Berlin")

			res, err := f.engine.Check(ctx, caseID, tt.date, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.RuleResults["move_in_date"])
			assert.Equal(t, tt.want != "ok", res.NeedsHITL)
		})
	}
}

func TestEngine_AddressFormat(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		want      string
	}{
		{"comma and digit", "Hauptstraße 5, Berlin", "ok"},
		{"missing comma", "Hauptstraße 5 Berlin", "invalid_address_format"},
		{"missing digit", "Hauptstraße, Berlin", "invalid_address_format"},
		{"empty", "", "invalid_address_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := requestcontext.WithTime(context.Background(), testNow)
			caseID := f.qualityOKCase(t, tt.canonical)

			res, err := f.engine.Check(ctx, caseID, "2025-02-11", true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.RuleResults["address_format"])
		})
	}
}

func TestEngine_FailurePausesWithRulesTask(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithTime(context.Background(), testNow)
	caseID := f.qualityOKCase(t, "Hauptstraße 5, 10115 Berlin")

	res, err := f.engine.Check(ctx, caseID, "2025-02-11", false)
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.True(t, res.NeedsHITL)
	assert.Equal(t, "HITL-RULES-"+string(caseID), res.HITLTaskID)
	assert.Equal(t, "missing_or_invalid", res.RuleResults["documents"])

	c, err := f.cases.Get(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, casemodels.StatusWaitingForHuman, c.Status)
}

func TestEngine_AuditTrailOrderIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithTime(context.Background(), testNow)
	caseID := f.qualityOKCase(t, "Hauptstraße 5, 10115 Berlin")

	_, err := f.engine.Check(ctx, caseID, "2025-02-11", true)
	require.NoError(t, err)

	entries, err := f.auditLog.ListByCase(ctx, caseID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 3)
	assert.Contains(t, entries[0].Message, "Rule move_in_date:")
	assert.Contains(t, entries[1].Message, "Rule address_format:")
	assert.Contains(t, entries[2].Message, "Rule documents:")
}

func TestEngine_PausedCaseIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caseID := f.qualityOKCase(t, "Hauptstraße 5, 10115 Berlin")
	require.NoError(t, f.cases.UpdateStatus(ctx, caseID, casemodels.StatusWaitingForHuman))

	res, err := f.engine.Check(ctx, caseID, "2025-02-11", true)
	require.NoError(t, err)
	assert.True(t, res.Paused)
	assert.False(t, res.NeedsHITL)

	entries, err := f.auditLog.ListByCase(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "exactly one skip entry, no rule evaluations")
	assert.Contains(t, entries[0].Message, "skipped")
}
