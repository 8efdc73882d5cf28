package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meldeamt/internal/broadcast"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/requestcontext"
)

type fakeOutbox struct {
	keys     []string
	payloads [][]byte
	err      error
}

func (f *fakeOutbox) Enqueue(ctx context.Context, key string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestRecorder_Record(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	caseID := id.CaseID("Case ID: 3")

	t.Run("persists and fans out", func(t *testing.T) {
		store := NewInMemoryStore()
		hub := broadcast.NewHub(4)
		sub := hub.Subscribe()
		outbox := &fakeOutbox{}
		rec := NewRecorder(store, hub, outbox, logger)

		at := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), at)

		require.NoError(t, rec.Record(ctx, caseID, "Case ingested"))

		entries, err := rec.List(ctx, caseID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Case ingested", entries[0].Message)
		assert.Equal(t, at, entries[0].Timestamp)

		e := <-sub
		assert.Equal(t, "Case ID: 3", e.CaseID)
		assert.Equal(t, "Case ingested", e.Message)

		require.Len(t, outbox.keys, 1)
		assert.Equal(t, "Case ID: 3", outbox.keys[0])
	})

	t.Run("outbox failure does not fail the recording", func(t *testing.T) {
		store := NewInMemoryStore()
		rec := NewRecorder(store, nil, &fakeOutbox{err: errors.New("kafka down")}, logger)

		require.NoError(t, rec.Record(context.Background(), caseID, "still recorded"))

		entries, err := rec.List(context.Background(), caseID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("nil hub and outbox are skipped", func(t *testing.T) {
		rec := NewRecorder(NewInMemoryStore(), nil, nil, logger)
		assert.NoError(t, rec.Record(context.Background(), caseID, "minimal wiring"))
	})
}

func TestRecorder_ListOrdersChronologically(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store, nil, nil, slog.New(slog.DiscardHandler))
	caseID := id.CaseID("Case ID: 1")
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, rec.Record(ctx, caseID, msg))
	}
	require.NoError(t, rec.Record(ctx, id.CaseID("Case ID: 2"), "other case"))

	entries, err := rec.List(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "third", entries[2].Message)
}
