package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/internhub/internship-back-office/internal/domain/intern"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERN REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const internColumns = `
	id, unique_id, full_name, email, mobile, dob, domain, status,
	joining_date, duration_label, extended_days,
	certificate_number, certificate_status, certificate_issued_at,
	created_at, updated_at
`

// InternRepository implements intern.Repository for PostgreSQL.
type InternRepository struct {
	conn *Connection
}

// NewInternRepository creates a new InternRepository.
func NewInternRepository(conn *Connection) *InternRepository {
	return &InternRepository{conn: conn}
}

// Create creates a new intern record.
func (r *InternRepository) Create(ctx context.Context, i *intern.Intern) error {
	query := `
		INSERT INTO interns (
			id, unique_id, full_name, email, mobile, dob, domain, status,
			joining_date, duration_label, extended_days,
			certificate_number, certificate_status, certificate_issued_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.conn.Exec(ctx, query,
		i.ID,
		string(i.UniqueID),
		i.FullName,
		string(i.Email),
		i.Mobile,
		i.DOB,
		i.Domain,
		string(i.Status),
		i.JoiningDate,
		i.RawDuration,
		i.ExtendedDays,
		nullIfEmpty(i.CertificateNumber),
		nullIfEmpty(string(i.CertificateStatus)),
		i.CertificateIssuedAt,
		i.CreatedAt,
		i.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return intern.ErrInternAlreadyExists
		}
		return fmt.Errorf("failed to create intern: %w", err)
	}

	return nil
}

// GetByID returns an intern by internal ID.
func (r *InternRepository) GetByID(ctx context.Context, id string) (*intern.Intern, error) {
	query := `SELECT ` + internColumns + ` FROM interns WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanIntern(row)
}

// GetByUniqueID returns an intern by issuance-domain unique ID.
func (r *InternRepository) GetByUniqueID(ctx context.Context, uniqueID intern.UniqueID) (*intern.Intern, error) {
	query := `SELECT ` + internColumns + ` FROM interns WHERE unique_id = $1`

	row := r.conn.QueryRow(ctx, query, string(uniqueID))
	return r.scanIntern(row)
}

// GetByEmail returns an intern by email.
func (r *InternRepository) GetByEmail(ctx context.Context, email intern.Email) (*intern.Intern, error) {
	query := `SELECT ` + internColumns + ` FROM interns WHERE email = $1`

	row := r.conn.QueryRow(ctx, query, string(email))
	return r.scanIntern(row)
}

// GetByStatusIn returns all interns whose status is in the given set.
func (r *InternRepository) GetByStatusIn(ctx context.Context, statuses ...intern.Status) ([]*intern.Intern, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	values := make([]string, len(statuses))
	for idx, s := range statuses {
		values[idx] = string(s)
	}

	query := `SELECT ` + internColumns + ` FROM interns WHERE status = ANY($1)`

	rows, err := r.conn.Query(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("failed to query interns by status: %w", err)
	}
	defer rows.Close()

	var result []*intern.Intern
	for rows.Next() {
		i, err := r.scanInternRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, i)
	}

	return result, rows.Err()
}

// Update persists the full record.
func (r *InternRepository) Update(ctx context.Context, i *intern.Intern) error {
	query := `
		UPDATE interns SET
			full_name = $1,
			email = $2,
			mobile = $3,
			dob = $4,
			domain = $5,
			status = $6,
			joining_date = $7,
			duration_label = $8,
			extended_days = $9,
			certificate_number = $10,
			certificate_status = $11,
			certificate_issued_at = $12,
			updated_at = $13
		WHERE id = $14
	`

	result, err := r.conn.Exec(ctx, query,
		i.FullName,
		string(i.Email),
		i.Mobile,
		i.DOB,
		i.Domain,
		string(i.Status),
		i.JoiningDate,
		i.RawDuration,
		i.ExtendedDays,
		nullIfEmpty(i.CertificateNumber),
		nullIfEmpty(string(i.CertificateStatus)),
		i.CertificateIssuedAt,
		time.Now().UTC(),
		i.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return intern.ErrInternAlreadyExists
		}
		return fmt.Errorf("failed to update intern: %w", err)
	}
	if result.RowsAffected() == 0 {
		return intern.ErrInternNotFound
	}

	return nil
}

// ExistsByCertificateNumber reports whether any record carries the number.
func (r *InternRepository) ExistsByCertificateNumber(ctx context.Context, number string) (bool, error) {
	if number == "" {
		return false, nil
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM interns WHERE certificate_number = $1)`

	if err := r.conn.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check certificate number: %w", err)
	}

	return exists, nil
}

// Count returns the total number of intern records.
func (r *InternRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM interns`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interns: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *InternRepository) scanIntern(row pgx.Row) (*intern.Intern, error) {
	i, err := scanInternFields(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, intern.ErrInternNotFound
		}
		return nil, fmt.Errorf("failed to scan intern: %w", err)
	}
	return i, nil
}

func (r *InternRepository) scanInternRow(rows pgx.Rows) (*intern.Intern, error) {
	i, err := scanInternFields(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan intern row: %w", err)
	}
	return i, nil
}

// scanInternFields scans the internColumns set from a row-like source.
func scanInternFields(row pgx.Row) (*intern.Intern, error) {
	var (
		i             intern.Intern
		uniqueID      string
		email         string
		status        string
		durationLabel string
		certNumber    *string
		certStatus    *string
	)

	err := row.Scan(
		&i.ID,
		&uniqueID,
		&i.FullName,
		&email,
		&i.Mobile,
		&i.DOB,
		&i.Domain,
		&status,
		&i.JoiningDate,
		&durationLabel,
		&i.ExtendedDays,
		&certNumber,
		&certStatus,
		&i.CertificateIssuedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	i.UniqueID = intern.UniqueID(uniqueID)
	i.Email = intern.Email(email)
	i.Status = intern.Status(status)
	i.RawDuration = durationLabel
	i.Duration, _ = intern.ParseDuration(durationLabel)
	if certNumber != nil {
		i.CertificateNumber = *certNumber
	}
	if certStatus != nil {
		i.CertificateStatus = intern.CertificateStatus(*certStatus)
	}

	return &i, nil
}

// nullIfEmpty maps empty strings to SQL NULL for nullable columns.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
