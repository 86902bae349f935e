package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/internhub/internship-back-office/internal/domain/feedback"
	"github.com/internhub/internship-back-office/internal/domain/intern"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEEDBACK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const feedbackColumns = `
	id, unique_id, full_name, email, mobile, dob, domain, duration_label,
	start_month, end_month, rating, comments,
	certificate_status, certificate_number, certificate_issued_at,
	created_at, updated_at
`

// FeedbackRepository implements feedback.Repository for PostgreSQL.
type FeedbackRepository struct {
	conn *Connection
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(conn *Connection) *FeedbackRepository {
	return &FeedbackRepository{conn: conn}
}

// Create creates a new feedback record.
func (r *FeedbackRepository) Create(ctx context.Context, fb *feedback.Feedback) error {
	query := `
		INSERT INTO feedback (
			id, unique_id, full_name, email, mobile, dob, domain, duration_label,
			start_month, end_month, rating, comments,
			certificate_status, certificate_number, certificate_issued_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.conn.Exec(ctx, query,
		fb.ID,
		string(fb.UniqueID),
		fb.FullName,
		fb.Email,
		fb.Mobile,
		fb.DOB,
		fb.Domain,
		fb.Duration,
		fb.StartMonth,
		fb.EndMonth,
		fb.Rating,
		fb.Comments,
		string(fb.CertificateStatus),
		nullIfEmpty(fb.CertificateNumber),
		fb.CertificateIssuedAt,
		fb.CreatedAt,
		fb.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return feedback.ErrFeedbackAlreadyExists
		}
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

// GetByID returns a feedback record by internal ID.
func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*feedback.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = $1`

	return r.scanFeedback(r.conn.QueryRow(ctx, query, id))
}

// GetByUniqueID returns the feedback record for an intern.
func (r *FeedbackRepository) GetByUniqueID(ctx context.Context, uniqueID intern.UniqueID) (*feedback.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE unique_id = $1`

	return r.scanFeedback(r.conn.QueryRow(ctx, query, string(uniqueID)))
}

// Update persists the full record.
func (r *FeedbackRepository) Update(ctx context.Context, fb *feedback.Feedback) error {
	query := `
		UPDATE feedback SET
			full_name = $1,
			email = $2,
			mobile = $3,
			dob = $4,
			domain = $5,
			duration_label = $6,
			start_month = $7,
			end_month = $8,
			rating = $9,
			comments = $10,
			certificate_status = $11,
			certificate_number = $12,
			certificate_issued_at = $13,
			updated_at = $14
		WHERE id = $15
	`

	result, err := r.conn.Exec(ctx, query,
		fb.FullName,
		fb.Email,
		fb.Mobile,
		fb.DOB,
		fb.Domain,
		fb.Duration,
		fb.StartMonth,
		fb.EndMonth,
		fb.Rating,
		fb.Comments,
		string(fb.CertificateStatus),
		nullIfEmpty(fb.CertificateNumber),
		fb.CertificateIssuedAt,
		time.Now().UTC(),
		fb.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if result.RowsAffected() == 0 {
		return feedback.ErrFeedbackNotFound
	}

	return nil
}

// SetCertificateStatus unconditionally writes the certificate status.
func (r *FeedbackRepository) SetCertificateStatus(ctx context.Context, id string, status feedback.CertificateStatus) error {
	if !status.IsValid() {
		return feedback.ErrInvalidCertificateStatus
	}

	query := `UPDATE feedback SET certificate_status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.conn.Exec(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set certificate status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return feedback.ErrFeedbackNotFound
	}

	return nil
}

// MarkCertificateIssued conditionally flips the status to Issued. The
// WHERE clause is the serialization point: of N concurrent callers
// exactly one sees RowsAffected() == 1.
func (r *FeedbackRepository) MarkCertificateIssued(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE feedback
		SET certificate_status = $1, updated_at = $2
		WHERE id = $3 AND certificate_status <> $1
	`

	result, err := r.conn.Exec(ctx, query, string(feedback.StatusIssued), time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark certificate issued: %w", err)
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "already issued" from "no such record".
	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM feedback WHERE id = $1)`
	if err := r.conn.QueryRow(ctx, checkQuery, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check feedback existence: %w", err)
	}
	if !exists {
		return false, feedback.ErrFeedbackNotFound
	}

	return false, nil
}

// ExistsByCertificateNumber reports whether any feedback record carries
// the given certificate number.
func (r *FeedbackRepository) ExistsByCertificateNumber(ctx context.Context, number string) (bool, error) {
	if number == "" {
		return false, nil
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM feedback WHERE certificate_number = $1)`

	if err := r.conn.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check certificate number: %w", err)
	}

	return exists, nil
}

// ListByCertificateStatus returns every feedback record with the given
// certificate status.
func (r *FeedbackRepository) ListByCertificateStatus(ctx context.Context, status feedback.CertificateStatus) ([]*feedback.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE certificate_status = $1 ORDER BY created_at`

	rows, err := r.conn.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback by certificate status: %w", err)
	}
	defer rows.Close()

	var result []*feedback.Feedback
	for rows.Next() {
		fb, err := r.scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback rows: %w", err)
	}

	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *FeedbackRepository) scanFeedback(row pgx.Row) (*feedback.Feedback, error) {
	var (
		fb         feedback.Feedback
		uniqueID   string
		certStatus string
		certNumber *string
	)

	err := row.Scan(
		&fb.ID,
		&uniqueID,
		&fb.FullName,
		&fb.Email,
		&fb.Mobile,
		&fb.DOB,
		&fb.Domain,
		&fb.Duration,
		&fb.StartMonth,
		&fb.EndMonth,
		&fb.Rating,
		&fb.Comments,
		&certStatus,
		&certNumber,
		&fb.CertificateIssuedAt,
		&fb.CreatedAt,
		&fb.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, feedback.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to scan feedback: %w", err)
	}

	fb.UniqueID = intern.UniqueID(uniqueID)
	fb.CertificateStatus = feedback.CertificateStatus(certStatus)
	if certNumber != nil {
		fb.CertificateNumber = *certNumber
	}

	return &fb, nil
}
