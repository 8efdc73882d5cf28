package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"meldeamt/internal/patterns/models"
	id "meldeamt/pkg/domain"
)

// PostgresResolutionStore persists patterns in the `resolutions` table.
type PostgresResolutionStore struct {
	db *sql.DB
}

func NewPostgresResolutionStore(db *sql.DB) *PostgresResolutionStore {
	return &PostgresResolutionStore{db: db}
}

func (s *PostgresResolutionStore) Upsert(ctx context.Context, pattern, corrected string, t models.ResolutionType, now time.Time) (id.ResolutionID, error) {
	query := `
		INSERT INTO resolutions (original_pattern, corrected_value, resolution_type, frequency, last_used_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (original_pattern, resolution_type) DO UPDATE
		SET corrected_value = EXCLUDED.corrected_value,
		    frequency = resolutions.frequency + 1,
		    last_used_at = EXCLUDED.last_used_at
		RETURNING id
	`
	var rid int64
	err := s.db.QueryRowContext(ctx, query, pattern, corrected, string(t), now).Scan(&rid)
	if err != nil {
		return 0, fmt.Errorf("upsert resolution: %w", err)
	}
	return id.ResolutionID(rid), nil
}

func (s *PostgresResolutionStore) ListAll(ctx context.Context) ([]models.Resolution, error) {
	query := `
		SELECT id, original_pattern, corrected_value, resolution_type, frequency, last_used_at
		FROM resolutions
		ORDER BY length(original_pattern) DESC, frequency DESC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var out []models.Resolution
	for rows.Next() {
		var (
			r   models.Resolution
			rid int64
			typ string
		)
		if err := rows.Scan(&rid, &r.Pattern, &r.Corrected, &typ, &r.Frequency, &r.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		r.ID = id.ResolutionID(rid)
		r.Type = models.ResolutionType(typ)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return out, nil
}

func (s *PostgresResolutionStore) Touch(ctx context.Context, ids []id.ResolutionID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{at}
	placeholders := ""
	for i, rid := range ids {
		if i > 0 {
			placeholders += ", "
		}
		args = append(args, int64(rid))
		placeholders += fmt.Sprintf("$%d", len(args))
	}
	query := `UPDATE resolutions SET last_used_at = $1 WHERE id IN (` + placeholders + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch resolutions: %w", err)
	}
	return nil
}
