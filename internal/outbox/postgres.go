package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	txcontext "meldeamt/pkg/platform/tx"
)

// PostgresStore persists outbox messages in the `outbox` table. Enqueue
// joins the caller's transaction when one is in the context, so an audit
// entry and its outbox message commit atomically.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Enqueue(ctx context.Context, key string, payload []byte) error {
	query := `INSERT INTO outbox (key, payload, created_at) VALUES ($1, $2, $3)`
	var err error
	if tx, ok := txcontext.From(ctx); ok {
		_, err = tx.ExecContext(ctx, query, key, payload, time.Now())
	} else {
		_, err = s.db.ExecContext(ctx, query, key, payload, time.Now())
	}
	if err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}

func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]Message, error) {
	query := `
		SELECT id, key, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Key, &m.Payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{time.Now()}
	placeholders := ""
	for i, id := range ids {
		if i > 0 {
			placeholders += ", "
		}
		args = append(args, id)
		placeholders += fmt.Sprintf("$%d", len(args))
	}
	query := `UPDATE outbox SET published_at = $1 WHERE id IN (` + placeholders + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark outbox messages published: %w", err)
	}
	return nil
}
