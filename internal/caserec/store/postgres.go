package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"meldeamt/internal/caserec/models"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/platform/sentinel"
	txcontext "meldeamt/pkg/platform/tx"
)

// PostgresCaseStore persists cases in the `cases` table.
type PostgresCaseStore struct {
	db *sql.DB
}

// NewPostgresCaseStore constructs a PostgreSQL-backed case store.
func NewPostgresCaseStore(db *sql.DB) *PostgresCaseStore {
	return &PostgresCaseStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresCaseStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const caseColumns = `
	case_id, citizen_name, dob, email,
	old_address_raw, new_address_raw, move_in_date_raw, landlord_name,
	canonical_address, registry_exists, status, assigned_to, analysis,
	pdf_landlord_path, pdf_address_change_path,
	created_at, submitted_at, approved_at, updated_at`

func (s *PostgresCaseStore) Create(ctx context.Context, c *models.Case) (id.CaseID, error) {
	query := `
		INSERT INTO cases (
			citizen_name, dob, email,
			old_address_raw, new_address_raw, move_in_date_raw, landlord_name,
			canonical_address, status, assigned_to, analysis,
			pdf_landlord_path, pdf_address_change_path,
			created_at, submitted_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	var seq int64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		c.CitizenName, c.DOB, c.Email,
		c.OldAddressRaw, c.NewAddressRaw, c.MoveInDateRaw, c.LandlordName,
		c.CanonicalAddress, string(c.Status), c.AssignedTo, c.Analysis,
		c.PDFLandlordPath, c.PDFAddressPath,
		c.CreatedAt, c.SubmittedAt, c.UpdatedAt,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("insert case: %w", err)
	}

	caseID := id.NewCaseID(seq)
	_, err = s.execer(ctx).ExecContext(ctx,
		`UPDATE cases SET case_id = $1 WHERE id = $2`, caseID.String(), seq)
	if err != nil {
		return "", fmt.Errorf("stamp case id: %w", err)
	}
	c.ID = caseID
	return caseID, nil
}

func (s *PostgresCaseStore) Get(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE case_id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, caseID.String())
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	return c, nil
}

func (s *PostgresCaseStore) UpdateStatus(ctx context.Context, caseID id.CaseID, status models.Status) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE cases SET status = $1, updated_at = $2 WHERE case_id = $3`,
		string(status), time.Now(), caseID.String())
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	return requireRow(res, caseID)
}

// UpdateStatusIf performs the conditional transition as a single UPDATE so
// concurrent triggers for the same case serialize at the database.
func (s *PostgresCaseStore) UpdateStatusIf(ctx context.Context, caseID id.CaseID, to models.Status, from ...models.Status) error {
	if len(from) == 0 {
		return s.UpdateStatus(ctx, caseID, to)
	}

	args := []any{string(to), time.Now(), caseID.String()}
	placeholders := ""
	for i, f := range from {
		if i > 0 {
			placeholders += ", "
		}
		args = append(args, string(f))
		placeholders += fmt.Sprintf("$%d", len(args))
	}
	query := `UPDATE cases SET status = $1, updated_at = $2 WHERE case_id = $3 AND status IN (` + placeholders + `)`

	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("conditional status update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditional status update: %w", err)
	}
	if n == 0 {
		// Distinguish unknown case from lost swap.
		var current string
		err := s.execer(ctx).QueryRowContext(ctx,
			`SELECT status FROM cases WHERE case_id = $1`, caseID.String()).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("conditional status update: %w", err)
		}
		return fmt.Errorf("case %s is %s: %w", caseID, current, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresCaseStore) SetCanonicalAddress(ctx context.Context, caseID id.CaseID, canonical string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE cases SET canonical_address = $1, updated_at = $2 WHERE case_id = $3`,
		canonical, time.Now(), caseID.String())
	if err != nil {
		return fmt.Errorf("set canonical address: %w", err)
	}
	return requireRow(res, caseID)
}

func (s *PostgresCaseStore) SetRegistryExists(ctx context.Context, caseID id.CaseID, exists bool) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE cases SET registry_exists = $1, updated_at = $2 WHERE case_id = $3`,
		exists, time.Now(), caseID.String())
	if err != nil {
		return fmt.Errorf("set registry exists: %w", err)
	}
	return requireRow(res, caseID)
}

func (s *PostgresCaseStore) MarkApproved(ctx context.Context, caseID id.CaseID, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE cases SET status = $1, approved_at = $2, updated_at = $2 WHERE case_id = $3`,
		string(models.StatusProcessing), at, caseID.String())
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	return requireRow(res, caseID)
}

func (s *PostgresCaseStore) ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Case, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(statuses))
	placeholders := ""
	for i, st := range statuses {
		if i > 0 {
			placeholders += ", "
		}
		args = append(args, string(st))
		placeholders += fmt.Sprintf("$%d", len(args))
	}
	query := `SELECT ` + caseColumns + ` FROM cases WHERE status IN (` + placeholders + `) ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases by status: %w", err)
	}
	defer rows.Close()
	return scanCases(rows)
}

func (s *PostgresCaseStore) ListAll(ctx context.Context) ([]*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()
	return scanCases(rows)
}

func requireRow(res sql.Result, caseID id.CaseID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c              models.Case
		caseID         string
		status         string
		landlord       sql.NullString
		canonical      sql.NullString
		registryExists sql.NullBool
		assignedTo     sql.NullString
		analysis       sql.NullString
		pdfLandlord    sql.NullString
		pdfAddress     sql.NullString
		submittedAt    sql.NullTime
		approvedAt     sql.NullTime
	)

	err := row.Scan(
		&caseID, &c.CitizenName, &c.DOB, &c.Email,
		&c.OldAddressRaw, &c.NewAddressRaw, &c.MoveInDateRaw, &landlord,
		&canonical, &registryExists, &status, &assignedTo, &analysis,
		&pdfLandlord, &pdfAddress,
		&c.CreatedAt, &submittedAt, &approvedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ID = id.CaseID(caseID)
	c.Status = models.Status(status)
	c.LandlordName = landlord.String
	c.CanonicalAddress = canonical.String
	c.AssignedTo = assignedTo.String
	c.Analysis = analysis.String
	c.PDFLandlordPath = pdfLandlord.String
	c.PDFAddressPath = pdfAddress.String
	if registryExists.Valid {
		v := registryExists.Bool
		c.RegistryExists = &v
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		c.SubmittedAt = &t
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		c.ApprovedAt = &t
	}
	return &c, nil
}

func scanCases(rows *sql.Rows) ([]*models.Case, error) {
	var out []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}
