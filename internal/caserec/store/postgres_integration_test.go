//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meldeamt/internal/caserec/models"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/platform/sentinel"
	"meldeamt/pkg/testutil/containers"
)

const casesSchema = `
CREATE TABLE IF NOT EXISTS cases (
    id BIGSERIAL PRIMARY KEY,
    case_id TEXT UNIQUE,
    citizen_name TEXT NOT NULL,
    dob TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL,
    old_address_raw TEXT NOT NULL DEFAULT '',
    new_address_raw TEXT NOT NULL,
    move_in_date_raw TEXT NOT NULL DEFAULT '',
    landlord_name TEXT,
    canonical_address TEXT,
    registry_exists BOOLEAN,
    status TEXT NOT NULL,
    assigned_to TEXT,
    analysis TEXT,
    pdf_landlord_path TEXT,
    pdf_address_change_path TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    submitted_at TIMESTAMPTZ,
    approved_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL
)`

func TestPostgresCaseStore_Integration(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	pc.Exec(t, casesSchema)

	s := NewPostgresCaseStore(pc.DB)
	ctx := context.Background()

	c, err := models.NewCase("Max Mustermann", "1990-05-01", "max@example.com",
		"Alte Str. 1, 10115 Berlin", "Musterstr 12a, 67264 KL",
		"2025-03-01", "Vermieter GmbH", models.StatusPendingApproval, time.Now().UTC())
	require.NoError(t, err)

	caseID, err := s.Create(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, id.CaseID("Case ID: 1"), caseID)

	t.Run("round trip", func(t *testing.T) {
		got, err := s.Get(ctx, caseID)
		require.NoError(t, err)
		assert.Equal(t, "Max Mustermann", got.CitizenName)
		assert.Equal(t, models.StatusPendingApproval, got.Status)
		assert.Nil(t, got.RegistryExists)
	})

	t.Run("conditional transition", func(t *testing.T) {
		require.NoError(t, s.UpdateStatusIf(ctx, caseID, models.StatusProcessing, models.StatusPendingApproval))

		err := s.UpdateStatusIf(ctx, caseID, models.StatusProcessing, models.StatusPendingApproval)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("canonical address and registry flag", func(t *testing.T) {
		require.NoError(t, s.SetCanonicalAddress(ctx, caseID, "Musterstraße 12a, 67264 Kaiserslautern"))
		require.NoError(t, s.SetRegistryExists(ctx, caseID, true))

		got, err := s.Get(ctx, caseID)
		require.NoError(t, err)
		assert.Equal(t, "Musterstraße 12a, 67264 Kaiserslautern", got.CanonicalAddress)
		require.NotNil(t, got.RegistryExists)
		assert.True(t, *got.RegistryExists)
	})

	t.Run("listing", func(t *testing.T) {
		second, err := models.NewCase("Erika Musterfrau", "1985-01-01", "erika@example.com",
			"", "Hauptstraße 5, 10115 Berlin", "2025-04-01", "", models.StatusPendingApproval, time.Now().UTC())
		require.NoError(t, err)
		secondID, err := s.Create(ctx, second)
		require.NoError(t, err)

		pending, err := s.ListByStatus(ctx, models.StatusPendingApproval)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, secondID, pending[0].ID)

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("unknown case", func(t *testing.T) {
		_, err := s.Get(ctx, id.CaseID("Case ID: 404"))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
