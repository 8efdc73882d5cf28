package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meldeamt/internal/patterns/models"
	id "meldeamt/pkg/domain"
)

func TestPostgresResolutionStore_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO resolutions`).
		WithArgs("KL", "Kaiserslautern", "city_abbreviation", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	s := NewPostgresResolutionStore(db)
	rid, err := s.Upsert(context.Background(), "KL", "Kaiserslautern", models.TypeCityAbbreviation, time.Now())
	require.NoError(t, err)
	assert.Equal(t, id.ResolutionID(3), rid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResolutionStore_ListAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, original_pattern`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "original_pattern", "corrected_value", "resolution_type", "frequency", "last_used_at"}).
			AddRow(int64(1), "Musterstr", "Musterstraße", "street_abbreviation", 2, now).
			AddRow(int64(2), "KL", "Kaiserslautern", "city_abbreviation", 5, now))

	s := NewPostgresResolutionStore(db)
	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Musterstr", all[0].Pattern)
	assert.Equal(t, models.TypeCityAbbreviation, all[1].Type)
	assert.Equal(t, 5, all[1].Frequency)
}

func TestPostgresResolutionStore_Touch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE resolutions SET last_used_at = \$1 WHERE id IN \(\$2, \$3\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	s := NewPostgresResolutionStore(db)
	err = s.Touch(context.Background(), []id.ResolutionID{1, 2}, time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Empty id list is a no-op without touching the database.
	assert.NoError(t, s.Touch(context.Background(), nil, time.Now()))
}
