package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx(t *testing.T) {
	t.Run("round trips through context", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()

		dbtx, err := db.Begin()
		require.NoError(t, err)

		ctx := WithTx(context.Background(), dbtx)
		got, ok := From(ctx)
		require.True(t, ok)
		assert.Same(t, dbtx, got)
	})

	t.Run("nil tx leaves the context untouched", func(t *testing.T) {
		ctx := WithTx(context.Background(), nil)
		_, ok := From(ctx)
		assert.False(t, ok)
	})
}

func TestRunner_InTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO cases").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err = NewRunner(db).InTx(context.Background(), func(ctx context.Context) error {
			dbtx, ok := From(ctx)
			require.True(t, ok)
			_, err := dbtx.ExecContext(ctx, "INSERT INTO cases DEFAULT VALUES")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectRollback()

		wantErr := errors.New("store failed")
		err = NewRunner(db).InTx(context.Background(), func(ctx context.Context) error {
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
