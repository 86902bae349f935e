// Package intern contains the domain model for internship records.
// This is the core of the lifecycle engine - there are no external
// dependencies here.
package intern

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/internhub/internship-back-office/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UniqueID is the issuance-domain identifier assigned once when an intern
// is selected. It is immutable and links feedback snapshots to intern
// records without a mutable foreign key.
type UniqueID string

// IsValid checks that the unique ID is non-empty and has no whitespace.
func (u UniqueID) IsValid() bool {
	s := string(u)
	return len(s) >= 4 && len(s) <= 40 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation of the unique ID.
func (u UniqueID) String() string {
	return string(u)
}

// Email represents an intern's email address, unique within the store.
type Email string

// IsValid performs the minimal structural check the engine needs.
// Full validation belongs to the registration layer.
func (e Email) IsValid() bool {
	s := string(e)
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation of the email.
func (e Email) String() string {
	return string(e)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status defines where an intern is in the review and internship pipeline.
type Status string

const (
	// StatusApplied - application received, not yet reviewed.
	StatusApplied Status = "applied"
	// StatusSelected - passed review, offer issued, not yet started.
	StatusSelected Status = "selected"
	// StatusRejected - application rejected.
	StatusRejected Status = "rejected"
	// StatusActive - internship in progress.
	StatusActive Status = "active"
	// StatusInactive - administratively paused (not owned by the sweeper).
	StatusInactive Status = "inactive"
	// StatusCompleted - internship window has elapsed.
	StatusCompleted Status = "completed"
)

// IsValid checks that the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusApplied, StatusSelected, StatusRejected, StatusActive, StatusInactive, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsTracked returns true for the statuses the lifecycle sweeper owns.
func (s Status) IsTracked() bool {
	return s == StatusActive || s == StatusCompleted
}

// CertificateStatus tracks certificate issuance on the intern record.
// It mirrors the authoritative copy on the feedback record.
type CertificateStatus string

const (
	// CertificatePending - feedback submitted, awaiting review.
	CertificatePending CertificateStatus = "pending"
	// CertificateIssued - issuance triggered; a number may still be absent
	// if render/delivery failed after the status flip.
	CertificateIssued CertificateStatus = "issued"
	// CertificateRejected - review team declined issuance.
	CertificateRejected CertificateStatus = "rejected"
)

// IsValid checks that the certificate status is one of the known values.
func (c CertificateStatus) IsValid() bool {
	switch c {
	case CertificatePending, CertificateIssued, CertificateRejected, "":
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: INTERN
// ══════════════════════════════════════════════════════════════════════════════

// Intern is the source of truth for internship lifecycle and time.
type Intern struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// UniqueID is the issuance-domain identifier, assigned on selection.
	UniqueID UniqueID

	// FullName is the intern's name as entered at application time.
	FullName string

	// Email is unique within the store.
	Email Email

	// Mobile is unique within the store.
	Mobile string

	// DOB is the intern's date of birth.
	DOB *time.Time

	// Domain is the internship domain, e.g. "Web Development".
	Domain string

	// Status is the current pipeline status.
	Status Status

	// JoiningDate is set once when the intern becomes active. Immutable
	// afterwards except by bulk administrative override.
	JoiningDate *time.Time

	// Duration is the parsed duration enum.
	Duration Duration

	// RawDuration preserves the original label for snapshots and exports.
	RawDuration string

	// ExtendedDays accumulates explicit extensions. Never decreases.
	ExtendedDays int

	// CertificateNumber is set only by the issuance orchestrator.
	// Non-empty implies CertificateStatus == CertificateIssued.
	CertificateNumber string

	// CertificateStatus mirrors the feedback record's issuance state.
	CertificateStatus CertificateStatus

	// CertificateIssuedAt is set when the certificate number is persisted.
	CertificateIssuedAt *time.Time

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInternNotFound - intern record not found.
	ErrInternNotFound = errors.New("intern not found")

	// ErrInternAlreadyExists - intern record already exists.
	ErrInternAlreadyExists = errors.New("intern already exists")

	// ErrInvalidUniqueID - invalid unique ID.
	ErrInvalidUniqueID = errors.New("invalid unique id: must be 4-40 chars without whitespace")

	// ErrInvalidEmail - invalid email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidStatus - invalid intern status.
	ErrInvalidStatus = errors.New("invalid intern status")

	// ErrMissingJoiningDate - operation requires a joining date.
	ErrMissingJoiningDate = errors.New("intern has no joining date")

	// ErrInvalidExtension - extensions must be positive day counts.
	ErrInvalidExtension = errors.New("extension days must be positive")

	// ErrNotTracked - the record is not in a sweeper-owned status.
	ErrNotTracked = errors.New("intern is not in a tracked status")

	// ErrCertificateAlreadyIssued - certificate fields are already set.
	ErrCertificateAlreadyIssued = errors.New("certificate already issued")

	// ErrRejectedActivation - rejected interns cannot be activated.
	ErrRejectedActivation = errors.New("rejected intern cannot be activated")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewInternParams contains parameters for creating a new intern record.
type NewInternParams struct {
	ID          string
	UniqueID    UniqueID
	FullName    string
	Email       Email
	Mobile      string
	Domain      string
	RawDuration string
}

// NewIntern creates a new intern record with validation. New records start
// in the Applied status; joining date and duration are bound later by the
// (out-of-scope) review workflow.
func NewIntern(params NewInternParams) (*Intern, error) {
	if params.ID == "" {
		return nil, errors.New("intern id is required")
	}

	if !params.UniqueID.IsValid() {
		return nil, ErrInvalidUniqueID
	}

	if !params.Email.IsValid() {
		return nil, ErrInvalidEmail
	}

	fullName := strings.TrimSpace(params.FullName)
	if len(fullName) == 0 || len(fullName) > 120 {
		return nil, errors.New("invalid full name: must be 1-120 chars")
	}

	duration, _ := ParseDuration(params.RawDuration)

	now := time.Now().UTC()

	return &Intern{
		ID:          params.ID,
		UniqueID:    params.UniqueID,
		FullName:    fullName,
		Email:       params.Email,
		Mobile:      strings.TrimSpace(params.Mobile),
		Domain:      strings.TrimSpace(params.Domain),
		Status:      StatusApplied,
		Duration:    duration,
		RawDuration: params.RawDuration,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// EndDate computes the internship end date. The second return value is
// false when no joining date has been set.
func (i *Intern) EndDate() (time.Time, bool) {
	if i.JoiningDate == nil {
		return time.Time{}, false
	}
	return ResolveEndDate(*i.JoiningDate, i.Duration, i.ExtendedDays), true
}

// Activate moves the intern into the Active status and binds the joining
// date if it is not already set.
func (i *Intern) Activate(joiningDate time.Time) error {
	if i.Status == StatusRejected {
		return ErrRejectedActivation
	}

	if i.JoiningDate == nil {
		// Date-granular: the sweeper compares end dates against UTC
		// midnight, so a clock component here would complete the
		// internship a day late.
		jd := timeutil.StartOfDay(joiningDate)
		i.JoiningDate = &jd
	}
	i.Status = StatusActive
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks the internship as completed. Owned by the sweeper, which
// only calls it once the end date has passed.
func (i *Intern) Complete() error {
	if i.Status != StatusActive {
		return ErrNotTracked
	}
	if i.JoiningDate == nil {
		return ErrMissingJoiningDate
	}

	i.Status = StatusCompleted
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Reactivate moves a completed intern back to Active. Owned by the sweeper:
// a late-arriving extension can push the end date back into the future.
func (i *Intern) Reactivate() error {
	if i.Status != StatusCompleted {
		return ErrNotTracked
	}

	i.Status = StatusActive
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Extend increases the accumulated extension days. ExtendedDays is
// monotonic: extensions are always positive, and there is no operation
// that decreases the total.
func (i *Intern) Extend(days int) error {
	if days <= 0 {
		return ErrInvalidExtension
	}

	i.ExtendedDays += days
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCertificateIssued records the certificate number and issuance time.
// Called only by the issuance orchestrator when mirroring the feedback
// record. Refuses to overwrite an existing number.
func (i *Intern) MarkCertificateIssued(number string, issuedAt time.Time) error {
	if number == "" {
		return errors.New("certificate number is required")
	}
	if i.CertificateNumber != "" {
		return ErrCertificateAlreadyIssued
	}

	at := issuedAt.UTC()
	i.CertificateNumber = number
	i.CertificateStatus = CertificateIssued
	i.CertificateIssuedAt = &at
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// String returns a string representation of the intern for logging.
func (i *Intern) String() string {
	return fmt.Sprintf(
		"Intern{ID: %s, UniqueID: %s, Status: %s, Duration: %s, ExtendedDays: %d}",
		i.ID, i.UniqueID, i.Status, i.Duration, i.ExtendedDays,
	)
}

// Clone creates a deep copy of the intern record.
func (i *Intern) Clone() *Intern {
	if i == nil {
		return nil
	}

	clone := *i
	if i.JoiningDate != nil {
		jd := *i.JoiningDate
		clone.JoiningDate = &jd
	}
	if i.DOB != nil {
		dob := *i.DOB
		clone.DOB = &dob
	}
	if i.CertificateIssuedAt != nil {
		at := *i.CertificateIssuedAt
		clone.CertificateIssuedAt = &at
	}
	return &clone
}
