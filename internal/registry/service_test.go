package registry

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
)

func newService(t *testing.T) (*Service, *casestore.InMemoryCaseStore, *audit.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	cases := casestore.NewInMemoryCaseStore()
	auditStore := audit.NewInMemoryStore()
	return NewService(cases, audit.NewRecorder(auditStore, nil, nil, logger), logger), cases, auditStore
}

func createCase(t *testing.T, cases *casestore.InMemoryCaseStore, name string, status casemodels.Status) id.CaseID {
	t.Helper()
	c, err := casemodels.NewCase(name, "1990-05-01", "max@example.com",
		"", "raw", "2025-03-01", "", status, time.Now())
	require.NoError(t, err)
	caseID, err := cases.Create(context.Background(), c)
	require.NoError(t, err)
	return caseID
}

func TestService_VerifyIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("known citizen", func(t *testing.T) {
		svc, cases, _ := newService(t)
		caseID := createCase(t, cases, "Max Mustermann", casemodels.StatusProcessing)

		exists, err := svc.VerifyIdentity(ctx, caseID)
		require.NoError(t, err)
		assert.True(t, exists)

		c, err := cases.Get(ctx, caseID)
		require.NoError(t, err)
		require.NotNil(t, c.RegistryExists)
		assert.True(t, *c.RegistryExists)
	})

	t.Run("test names are unknown", func(t *testing.T) {
		svc, cases, _ := newService(t)
		caseID := createCase(t, cases, "Test User", casemodels.StatusProcessing)

		exists, err := svc.VerifyIdentity(ctx, caseID)
		require.NoError(t, err)
		assert.False(t, exists)

		c, err := cases.Get(ctx, caseID)
		require.NoError(t, err)
		require.NotNil(t, c.RegistryExists)
		assert.False(t, *c.RegistryExists)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("transitions to updated and persists address", func(t *testing.T) {
		svc, cases, _ := newService(t)
		caseID := createCase(t, cases, "Max Mustermann", casemodels.StatusRulesPassed)

		status, err := svc.Update(ctx, caseID, "Musterstraße 12a, 67663 Kaiserslautern")
		require.NoError(t, err)
		assert.Equal(t, casemodels.StatusUpdated, status)

		c, err := cases.Get(ctx, caseID)
		require.NoError(t, err)
		assert.Equal(t, casemodels.StatusUpdated, c.Status)
		assert.Equal(t, "Musterstraße 12a, 67663 Kaiserslautern", c.CanonicalAddress)
	})

	t.Run("paused case is skipped", func(t *testing.T) {
		svc, cases, auditStore := newService(t)
		caseID := createCase(t, cases, "Max Mustermann", casemodels.StatusWaitingForHuman)

		status, err := svc.Update(ctx, caseID, "irrelevant")
		require.NoError(t, err)
		assert.Equal(t, casemodels.StatusWaitingForHuman, status)

		entries, err := auditStore.ListByCase(ctx, caseID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Message, "skipped")

		c, err := cases.Get(ctx, caseID)
		require.NoError(t, err)
		assert.Equal(t, casemodels.StatusWaitingForHuman, c.Status)
		assert.Empty(t, c.CanonicalAddress)
	})
}
