// Package feedback contains the domain model for end-of-internship
// feedback records. A feedback record is the authoritative issuance
// snapshot: it carries a frozen copy of the intern's identity and
// internship window so historical certificates stay stable even if the
// intern record is later edited or deleted.
package feedback

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/internhub/internship-back-office/internal/domain/intern"
)

// CertificateStatus is the issuance state carried by the feedback record.
// This copy drives the review workflow; the intern record only mirrors it.
type CertificateStatus string

const (
	// StatusPending - feedback submitted, certificate awaiting review.
	StatusPending CertificateStatus = "pending"
	// StatusIssued - issuance has been triggered.
	StatusIssued CertificateStatus = "issued"
	// StatusRejected - review team declined issuance.
	StatusRejected CertificateStatus = "rejected"
)

// IsValid checks that the status is one of the known values.
func (s CertificateStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusIssued, StatusRejected:
		return true
	default:
		return false
	}
}

// Feedback is the issuance snapshot plus the intern's submitted feedback.
type Feedback struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// UniqueID references the intern record. Unique: one feedback record
	// per intern, enforced by the store.
	UniqueID intern.UniqueID

	// Snapshot of intern identity and internship window, frozen at
	// feedback-submission time.
	FullName   string
	Email      string
	Mobile     string
	DOB        *time.Time
	Domain     string
	Duration   string // raw duration label as it appeared on the record
	StartMonth string // e.g. "January 2024"
	EndMonth   string // e.g. "April 2024"

	// Feedback content submitted by the intern.
	Rating   int
	Comments string

	// CertificateStatus drives issuance. Mutated only by certificate
	// status transitions.
	CertificateStatus CertificateStatus

	// CertificateNumber is set only by the issuance orchestrator.
	CertificateNumber string

	// CertificateIssuedAt is set when the certificate number is persisted.
	CertificateIssuedAt *time.Time

	// CreatedAt is when the feedback was submitted.
	CreatedAt time.Time

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

var (
	// ErrFeedbackNotFound - feedback record not found.
	ErrFeedbackNotFound = errors.New("feedback not found")

	// ErrFeedbackAlreadyExists - a feedback record already exists for the
	// unique ID.
	ErrFeedbackAlreadyExists = errors.New("feedback already exists for intern")

	// ErrInvalidRating - rating out of the 1-5 range.
	ErrInvalidRating = errors.New("invalid rating: must be between 1 and 5")

	// ErrInvalidCertificateStatus - unknown certificate status.
	ErrInvalidCertificateStatus = errors.New("invalid certificate status")
)

// NewFeedbackParams contains parameters for creating a feedback record.
type NewFeedbackParams struct {
	ID         string
	UniqueID   intern.UniqueID
	FullName   string
	Email      string
	Mobile     string
	DOB        *time.Time
	Domain     string
	Duration   string
	StartMonth string
	EndMonth   string
	Rating     int
	Comments   string
}

// NewFeedback creates a feedback record with validation. Certificate
// status starts as Pending.
func NewFeedback(params NewFeedbackParams) (*Feedback, error) {
	if params.ID == "" {
		return nil, errors.New("feedback id is required")
	}
	if !params.UniqueID.IsValid() {
		return nil, intern.ErrInvalidUniqueID
	}
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}

	now := time.Now().UTC()

	return &Feedback{
		ID:                params.ID,
		UniqueID:          params.UniqueID,
		FullName:          strings.TrimSpace(params.FullName),
		Email:             strings.TrimSpace(params.Email),
		Mobile:            strings.TrimSpace(params.Mobile),
		DOB:               params.DOB,
		Domain:            params.Domain,
		Duration:          params.Duration,
		StartMonth:        params.StartMonth,
		EndMonth:          params.EndMonth,
		Rating:            params.Rating,
		Comments:          params.Comments,
		CertificateStatus: StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// SetCertificateNumber records the allocated number and issuance time.
// Refuses to overwrite an existing number.
func (f *Feedback) SetCertificateNumber(number string, issuedAt time.Time) error {
	if number == "" {
		return errors.New("certificate number is required")
	}
	if f.CertificateNumber != "" {
		return intern.ErrCertificateAlreadyIssued
	}

	at := issuedAt.UTC()
	f.CertificateNumber = number
	f.CertificateIssuedAt = &at
	f.UpdatedAt = time.Now().UTC()
	return nil
}

// IsIssued reports whether issuance has been triggered for this record.
func (f *Feedback) IsIssued() bool {
	return f.CertificateStatus == StatusIssued
}

// NeedsReconciliation reports the operator-detectable inconsistent state:
// issuance was triggered but no certificate number was ever persisted
// (render or delivery failed after the status flip).
func (f *Feedback) NeedsReconciliation() bool {
	return f.CertificateStatus == StatusIssued && f.CertificateNumber == ""
}

// String returns a string representation for logging.
func (f *Feedback) String() string {
	return fmt.Sprintf(
		"Feedback{ID: %s, UniqueID: %s, CertStatus: %s, CertNumber: %q}",
		f.ID, f.UniqueID, f.CertificateStatus, f.CertificateNumber,
	)
}

// Clone creates a deep copy of the feedback record.
func (f *Feedback) Clone() *Feedback {
	if f == nil {
		return nil
	}

	clone := *f
	if f.DOB != nil {
		dob := *f.DOB
		clone.DOB = &dob
	}
	if f.CertificateIssuedAt != nil {
		at := *f.CertificateIssuedAt
		clone.CertificateIssuedAt = &at
	}
	return &clone
}
