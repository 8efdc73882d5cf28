package intake

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
	"meldeamt/internal/certificate"
	"meldeamt/internal/patterns"
	patternstore "meldeamt/internal/patterns/store"
	"meldeamt/internal/pipeline"
	"meldeamt/internal/quality"
	"meldeamt/internal/registry"
	"meldeamt/internal/rules"
	dErrors "meldeamt/pkg/domain-errors"
	"meldeamt/pkg/platform/sentinel"
	"meldeamt/pkg/requestcontext"
)

type nopRenderer struct{}

func (nopRenderer) Render(ctx context.Context, c *casemodels.Case) (string, error) {
	return "/artifacts/" + c.ID.FileSafe() + ".txt", nil
}

type fixture struct {
	svc         *Service
	cases       *casestore.InMemoryCaseStore
	resolutions *patternstore.InMemoryResolutionStore
	auditLog    *audit.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	cases := casestore.NewInMemoryCaseStore()
	resolutions := patternstore.NewInMemoryResolutionStore()
	auditStore := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(auditStore, nil, nil, logger)
	patternSvc := patterns.NewService(resolutions, nil, nil, logger)
	registrySvc := registry.NewService(cases, recorder, logger)
	assessor := quality.NewAssessor(cases, patternSvc, recorder, nil, logger)
	engine := rules.NewEngine(cases, recorder, nil, logger)
	certs := certificate.NewService(cases, recorder, nopRenderer{}, certificate.NopMailer{}, nil, logger)
	runner := pipeline.NewRunner(cases, registrySvc, assessor, engine, certs, recorder, nil, logger)
	return &fixture{
		svc:         NewService(cases, recorder, patternSvc, runner, nil, nil, logger),
		cases:       cases,
		resolutions: resolutions,
		auditLog:    auditStore,
	}
}

func validSubmission() Submission {
	return Submission{
		CitizenName:  "Max Mustermann",
		DOB:          "1990-05-01",
		Email:        "max@example.com",
		OldAddress:   "Alte Str. 1, 10115 Berlin",
		NewAddress:   "Hauptstraße 5, 10115 Berlin",
		MoveInDate:   time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		LandlordName: "Vermieter GmbH",
	}
}

func TestService_Submit(t *testing.T) {
	t.Run("creates a pending case", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.Submit(context.Background(), validSubmission())
		require.NoError(t, err)

		assert.Equal(t, casemodels.StatusPendingApproval, c.Status)
		assert.False(t, c.ID.IsZero())
		require.NotNil(t, c.SubmittedAt)

		entries, err := f.auditLog.ListByCase(context.Background(), c.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Message, "submitted")
	})

	t.Run("derives name from email", func(t *testing.T) {
		f := newFixture(t)
		sub := validSubmission()
		sub.CitizenName = ""
		sub.Email = "erika.musterfrau@example.com"

		c, err := f.svc.Submit(context.Background(), sub)
		require.NoError(t, err)
		assert.Equal(t, "Erika Musterfrau", c.CitizenName)
	})

	t.Run("rejects missing new address", func(t *testing.T) {
		f := newFixture(t)
		sub := validSubmission()
		sub.NewAddress = ""

		_, err := f.svc.Submit(context.Background(), sub)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestService_Approve(t *testing.T) {
	t.Run("runs the pipeline to completion", func(t *testing.T) {
		f := newFixture(t)
		ctx := requestcontext.WithEmployee(context.Background(), "clerk@amt.de")
		c, err := f.svc.Submit(ctx, validSubmission())
		require.NoError(t, err)

		require.NoError(t, f.svc.Approve(ctx, c.ID))

		got, err := f.cases.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.ApprovedAt)

		assert.Eventually(t, func() bool {
			got, err := f.cases.Get(context.Background(), c.ID)
			return err == nil && got.Status == casemodels.StatusClosed
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("duplicate approval is a conflict", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		c, err := f.svc.Submit(ctx, validSubmission())
		require.NoError(t, err)

		require.NoError(t, f.svc.Approve(ctx, c.ID))
		err = f.svc.Approve(ctx, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown case", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Approve(context.Background(), "Case ID: 404")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestService_ResolveHITL(t *testing.T) {
	pause := func(t *testing.T, f *fixture) *casemodels.Case {
		t.Helper()
		ctx := context.Background()
		sub := validSubmission()
		sub.NewAddress = "Musterstr 12a, 67264 KL"
		c, err := f.svc.Submit(ctx, sub)
		require.NoError(t, err)
		require.NoError(t, f.svc.Approve(ctx, c.ID))
		require.Eventually(t, func() bool {
			got, err := f.cases.Get(ctx, c.ID)
			return err == nil && got.Status == casemodels.StatusWaitingForHuman
		}, 2*time.Second, 10*time.Millisecond)
		return c
	}

	t.Run("learns, resumes, and closes", func(t *testing.T) {
		f := newFixture(t)
		c := pause(t, f)
		ctx := requestcontext.WithEmployee(context.Background(), "clerk@amt.de")

		err := f.svc.ResolveHITL(ctx, c.ID, "Musterstraße 12a, 67663 Kaiserslautern")
		require.NoError(t, err)

		stored, err := f.resolutions.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, stored, 2, "street and city patterns learned from the diff")

		assert.Eventually(t, func() bool {
			got, err := f.cases.Get(context.Background(), c.ID)
			return err == nil && got.Status == casemodels.StatusClosed
		}, 2*time.Second, 10*time.Millisecond)

		got, err := f.cases.Get(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Musterstraße 12a, 67663 Kaiserslautern", got.CanonicalAddress)
	})

	t.Run("case not waiting for review is a conflict", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		c, err := f.svc.Submit(ctx, validSubmission())
		require.NoError(t, err)

		err = f.svc.ResolveHITL(ctx, c.ID, "Hauptstraße 5, 10115 Berlin")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown case", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.ResolveHITL(context.Background(), "Case ID: 404", "Hauptstraße 5, 10115 Berlin")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("empty correction is rejected", func(t *testing.T) {
		f := newFixture(t)
		c := pause(t, f)
		err := f.svc.ResolveHITL(context.Background(), c.ID, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
