package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meldeamt/internal/patterns/models"
	id "meldeamt/pkg/domain"
)

func TestInMemoryResolutionStore_UpsertIncrementsFrequency(t *testing.T) {
	s := NewInMemoryResolutionStore()
	ctx := context.Background()
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.Upsert(ctx, "KL", "Kaiserslautern", models.TypeCityAbbreviation, now)
	require.NoError(t, err)

	// Same key with a different corrected value overwrites, no new row.
	second, err := s.Upsert(ctx, "KL", "Kaiserlautern-Stadt", models.TypeCityAbbreviation, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].Frequency)
	assert.Equal(t, "Kaiserlautern-Stadt", all[0].Corrected)
}

func TestInMemoryResolutionStore_SamePatternDifferentType(t *testing.T) {
	s := NewInMemoryResolutionStore()
	ctx := context.Background()
	now := time.Now()

	_, err := s.Upsert(ctx, "KL", "Kaiserslautern", models.TypeCityAbbreviation, now)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "KL", "Klaus", models.TypeWordCorrection, now)
	require.NoError(t, err)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInMemoryResolutionStore_ListAllOrdering(t *testing.T) {
	s := NewInMemoryResolutionStore()
	ctx := context.Background()
	now := time.Now()

	_, err := s.Upsert(ctx, "KL", "Kaiserslautern", models.TypeCityAbbreviation, now)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "Musterstr", "Musterstraße", models.TypeStreetAbbreviation, now)
	require.NoError(t, err)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Musterstr", all[0].Pattern, "longest pattern first")
	assert.Equal(t, "KL", all[1].Pattern)
}

func TestInMemoryResolutionStore_Touch(t *testing.T) {
	s := NewInMemoryResolutionStore()
	ctx := context.Background()
	created := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	rid, err := s.Upsert(ctx, "KL", "Kaiserslautern", models.TypeCityAbbreviation, created)
	require.NoError(t, err)

	used := created.Add(24 * time.Hour)
	require.NoError(t, s.Touch(ctx, []id.ResolutionID{rid}, used))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, used, all[0].LastUsedAt)
}
