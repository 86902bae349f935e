package intern

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// This interface defines the record-store contract the engine consumes.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the intern record-store operations the engine needs.
type Repository interface {
	// Create creates a new intern record.
	// Returns ErrInternAlreadyExists on a uniqueness violation.
	Create(ctx context.Context, intern *Intern) error

	// GetByID returns an intern by internal ID.
	// Returns ErrInternNotFound if no record matches.
	GetByID(ctx context.Context, id string) (*Intern, error)

	// GetByUniqueID returns an intern by issuance-domain unique ID.
	// Returns ErrInternNotFound if no record matches.
	GetByUniqueID(ctx context.Context, uniqueID UniqueID) (*Intern, error)

	// GetByEmail returns an intern by email.
	// Returns ErrInternNotFound if no record matches.
	GetByEmail(ctx context.Context, email Email) (*Intern, error)

	// GetByStatusIn returns all interns whose status is in the given set.
	// The sweeper calls this with {Active, Completed} on every run.
	GetByStatusIn(ctx context.Context, statuses ...Status) ([]*Intern, error)

	// Update persists the full record.
	// Returns ErrInternNotFound if no record matches.
	Update(ctx context.Context, intern *Intern) error

	// ExistsByCertificateNumber reports whether any intern record carries
	// the given certificate number. Used by the allocator's collision check.
	ExistsByCertificateNumber(ctx context.Context, number string) (bool, error)

	// Count returns the total number of intern records.
	Count(ctx context.Context) (int, error)
}
