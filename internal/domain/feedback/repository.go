package feedback

import (
	"context"

	"github.com/internhub/internship-back-office/internal/domain/intern"
)

// Repository defines the feedback record-store operations the engine needs.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create creates a feedback record.
	// Returns ErrFeedbackAlreadyExists when one exists for the unique ID.
	Create(ctx context.Context, fb *Feedback) error

	// GetByID returns a feedback record by internal ID.
	// Returns ErrFeedbackNotFound if no record matches.
	GetByID(ctx context.Context, id string) (*Feedback, error)

	// GetByUniqueID returns the feedback record for an intern.
	// Returns ErrFeedbackNotFound if no record matches.
	GetByUniqueID(ctx context.Context, uniqueID intern.UniqueID) (*Feedback, error)

	// Update persists the full record.
	// Returns ErrFeedbackNotFound if no record matches.
	Update(ctx context.Context, fb *Feedback) error

	// SetCertificateStatus unconditionally writes the certificate status.
	// Used for the pending/rejected transitions.
	SetCertificateStatus(ctx context.Context, id string, status CertificateStatus) error

	// MarkCertificateIssued conditionally flips the status to Issued:
	// the write only happens when the current status is not already
	// Issued. Returns won=true for the caller that performed the flip.
	// This conditional update is what serializes concurrent issuance
	// requests for the same record.
	MarkCertificateIssued(ctx context.Context, id string) (won bool, err error)

	// ExistsByCertificateNumber reports whether any feedback record
	// carries the given certificate number. Primary collision check for
	// the allocator.
	ExistsByCertificateNumber(ctx context.Context, number string) (bool, error)

	// ListByCertificateStatus returns every feedback record with the
	// given certificate status. The reconciliation job uses it to find
	// issued records whose delivery or mirror did not complete.
	ListByCertificateStatus(ctx context.Context, status CertificateStatus) ([]*Feedback, error)
}
