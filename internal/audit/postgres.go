package audit

import (
	"context"
	"database/sql"
	"fmt"

	id "meldeamt/pkg/domain"
	txcontext "meldeamt/pkg/platform/tx"
)

// PostgresStore persists audit entries in the `audit_logs` table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO audit_logs (case_id, timestamp, message)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var row *sql.Row
	if tx, ok := txcontext.From(ctx); ok {
		row = tx.QueryRowContext(ctx, query, string(e.CaseID), e.Timestamp, e.Message)
	} else {
		row = s.db.QueryRowContext(ctx, query, string(e.CaseID), e.Timestamp, e.Message)
	}
	if err := row.Scan(&e.ID); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]Entry, error) {
	query := `
		SELECT id, case_id, timestamp, message
		FROM audit_logs
		WHERE case_id = $1
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(caseID))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e   Entry
			cid string
		)
		if err := rows.Scan(&e.ID, &cid, &e.Timestamp, &e.Message); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CaseID = id.CaseID(cid)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
