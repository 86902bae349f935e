// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/internhub/internship-back-office/internal/domain/feedback"
	"github.com/internhub/internship-back-office/internal/domain/intern"
	"github.com/internhub/internship-back-office/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET CERTIFICATE STATUS COMMAND
// The single issuance trigger exposed to the review workflow. Setting the
// status to "issued" runs the full pipeline: allocate a number, render the
// certificate, deliver it by mail, then persist the number on the feedback
// record and mirror it onto the intern record.
// ══════════════════════════════════════════════════════════════════════════════

// SetCertificateStatusCommand contains the data for a status change.
type SetCertificateStatusCommand struct {
	// FeedbackID is the feedback record to update.
	FeedbackID string

	// NewStatus is the target certificate status.
	NewStatus feedback.CertificateStatus
}

// Validate validates the command.
func (c SetCertificateStatusCommand) Validate() error {
	if c.FeedbackID == "" {
		return errors.New("set_certificate_status: feedback_id must be provided")
	}
	if !c.NewStatus.IsValid() {
		return feedback.ErrInvalidCertificateStatus
	}
	return nil
}

// FeedbackSnapshot is the store-confirmed state returned to the caller
// after a status change. It is always re-read from the store, never
// assembled from pre-write memory.
type FeedbackSnapshot struct {
	FeedbackID          string
	UniqueID            string
	FullName            string
	Email               string
	CertificateStatus   feedback.CertificateStatus
	CertificateNumber   string
	CertificateIssuedAt *time.Time

	// DeliveryFailed is set when the status flip succeeded but the
	// render or delivery step did not. The record is left in the
	// reconcilable issued-without-number state.
	DeliveryFailed bool
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// NumberAllocator produces unique certificate numbers.
type NumberAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

// CertificateRenderer produces the certificate document from template
// fields.
type CertificateRenderer interface {
	Render(ctx context.Context, fields map[string]string) ([]byte, error)
}

// CertificateMailer delivers the rendered certificate.
type CertificateMailer interface {
	Send(ctx context.Context, to, subject, body string, attachment []byte, filename string) error
}

// IssuanceGuard is an optional distributed lock for multi-worker
// deployments. Acquire fails when another worker is mid-issuance for the
// same record.
type IssuanceGuard interface {
	Acquire(ctx context.Context, feedbackID, token string) error
	Release(ctx context.Context, feedbackID, token string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificateHandler handles SetCertificateStatusCommand.
type IssueCertificateHandler struct {
	feedbackRepo   feedback.Repository
	internRepo     intern.Repository
	allocator      NumberAllocator
	renderer       CertificateRenderer
	mailer         CertificateMailer
	eventPublisher shared.EventPublisher
	guard          IssuanceGuard
	logger         *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewIssueCertificateHandler creates a new IssueCertificateHandler.
func NewIssueCertificateHandler(
	feedbackRepo feedback.Repository,
	internRepo intern.Repository,
	allocator NumberAllocator,
	renderer CertificateRenderer,
	mailer CertificateMailer,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *IssueCertificateHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &IssueCertificateHandler{
		feedbackRepo:   feedbackRepo,
		internRepo:     internRepo,
		allocator:      allocator,
		renderer:       renderer,
		mailer:         mailer,
		eventPublisher: eventPublisher,
		logger:         logger,
		now:            time.Now,
	}
}

// WithGuard attaches a distributed issuance lock. Single-worker
// deployments can skip it: the store's conditional flip already
// serializes issuance.
func (h *IssueCertificateHandler) WithGuard(guard IssuanceGuard) *IssueCertificateHandler {
	h.guard = guard
	return h
}

// Handle executes the status change. For pending/rejected this is a
// plain status write. For issued it runs the full issuance pipeline:
//
//  1. Conditionally flip the status to issued; losing the flip means the
//     record was already issued and the call is an idempotent no-op.
//  2. Allocate a certificate number.
//  3. Render the certificate document from the snapshot fields.
//  4. Deliver it to the snapshot email address.
//  5. Persist the number and issuance time on the feedback record, then
//     mirror them onto the intern record (best effort).
//
// Render and delivery failures never fail the request: the status flip
// from step 1 stands, and the record is left in the detectable
// issued-without-number state the reconcile pass repairs later.
// Allocation and store failures after step 1 do surface to the caller;
// the flip is never rolled back.
func (h *IssueCertificateHandler) Handle(ctx context.Context, cmd SetCertificateStatusCommand) (*FeedbackSnapshot, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if cmd.NewStatus != feedback.StatusIssued {
		if err := h.feedbackRepo.SetCertificateStatus(ctx, cmd.FeedbackID, cmd.NewStatus); err != nil {
			return nil, err
		}
		return h.snapshot(ctx, cmd.FeedbackID, false)
	}

	if h.guard != nil {
		token := uuid.New().String()
		if err := h.guard.Acquire(ctx, cmd.FeedbackID, token); err != nil {
			return nil, shared.WrapDomainError("issuance", "acquire_guard",
				shared.ErrConcurrentModification, "another worker is issuing this certificate", err)
		}
		defer func() {
			if err := h.guard.Release(ctx, cmd.FeedbackID, token); err != nil {
				h.logger.Warn("failed to release issuance guard",
					slog.String("feedback_id", cmd.FeedbackID),
					slog.String("error", err.Error()))
			}
		}()
	}

	// Step 1: conditional flip. The store only performs the write when
	// the status is not already issued, so concurrent requests for the
	// same record resolve to exactly one winner.
	won, err := h.feedbackRepo.MarkCertificateIssued(ctx, cmd.FeedbackID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Already issued: idempotent success returning existing state.
		h.logger.Info("certificate already issued, returning existing state",
			slog.String("feedback_id", cmd.FeedbackID))
		return h.snapshot(ctx, cmd.FeedbackID, false)
	}

	fb, err := h.feedbackRepo.GetByID(ctx, cmd.FeedbackID)
	if err != nil {
		return nil, err
	}

	deliveryFailed, err := h.issueAndDeliver(ctx, fb)
	if err != nil {
		// Allocation/store failures abort the attempt and surface to
		// the caller. The status flip from step 1 stands.
		return nil, err
	}

	return h.snapshot(ctx, cmd.FeedbackID, deliveryFailed)
}

// Reissue re-runs the post-flip part of the pipeline for a record that
// is already marked issued but was left incomplete: either without a
// certificate number (render or delivery failed) or with a stale intern
// mirror. The reconciliation job is the only caller.
//
// Unlike Handle, a repeated render or delivery failure here surfaces as
// an error, so the job can count it and try again on the next pass.
func (h *IssueCertificateHandler) Reissue(ctx context.Context, feedbackID string) error {
	fb, err := h.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return err
	}
	if fb.CertificateStatus != feedback.StatusIssued {
		return shared.NewDomainError("issuance", "reissue",
			shared.ErrStateTransition, "record is not in the issued state")
	}

	if h.guard != nil {
		token := uuid.New().String()
		if err := h.guard.Acquire(ctx, feedbackID, token); err != nil {
			return shared.WrapDomainError("issuance", "reissue",
				shared.ErrConcurrentModification, "another worker is issuing this certificate", err)
		}
		defer func() {
			if err := h.guard.Release(ctx, feedbackID, token); err != nil {
				h.logger.Warn("failed to release issuance guard",
					slog.String("feedback_id", feedbackID),
					slog.String("error", err.Error()))
			}
		}()
	}

	if fb.CertificateNumber != "" {
		// Number already persisted: only the intern mirror is missing.
		issuedAt := h.now().UTC()
		if fb.CertificateIssuedAt != nil {
			issuedAt = *fb.CertificateIssuedAt
		}
		h.mirrorToIntern(ctx, fb, fb.CertificateNumber, issuedAt)
		return nil
	}

	deliveryFailed, err := h.issueAndDeliver(ctx, fb)
	if err != nil {
		return err
	}
	if deliveryFailed {
		return shared.NewDomainError("issuance", "reissue",
			shared.ErrDelivery, "render or delivery failed again")
	}
	return nil
}

// issueAndDeliver runs steps 2-5 of the pipeline. A non-nil error means
// allocation failed before the outbound calls, or the number could not
// be persisted after them; a true flag means render or delivery failed
// and the record was deliberately left without a number.
func (h *IssueCertificateHandler) issueAndDeliver(ctx context.Context, fb *feedback.Feedback) (bool, error) {
	number, err := h.allocator.Allocate(ctx)
	if err != nil {
		h.logger.Error("certificate number allocation failed",
			slog.String("feedback_id", fb.ID),
			slog.String("error", err.Error()))
		return false, err
	}

	fields := h.renderFields(fb, number)

	document, err := h.renderer.Render(ctx, fields)
	if err != nil {
		h.logger.Error("certificate render failed",
			slog.String("feedback_id", fb.ID),
			slog.String("certificate_number", number),
			slog.String("error", err.Error()))
		h.publishDeliveryFailed(fb, "render failed: "+err.Error())
		return true, nil
	}

	subject := "Your Internship Certificate"
	body := fmt.Sprintf(
		"Dear %s,\n\nCongratulations on completing your %s internship. Your certificate (number %s) is attached.\n",
		fb.FullName, fb.Domain, number)

	if err := h.mailer.Send(ctx, fb.Email, subject, body, document, "certificate.pdf"); err != nil {
		h.logger.Error("certificate delivery failed",
			slog.String("feedback_id", fb.ID),
			slog.String("certificate_number", number),
			slog.String("email", fb.Email),
			slog.String("error", err.Error()))
		h.publishDeliveryFailed(fb, "delivery failed: "+err.Error())
		return true, nil
	}

	if err := h.persistNumber(ctx, fb, number); err != nil {
		return false, err
	}
	return false, nil
}

// persistNumber writes the allocated number to the feedback record and
// mirrors it onto the intern record. The feedback write is authoritative:
// a failure there surfaces to the caller, leaving the record in the
// issued-without-number state for the reconcile pass. A failed mirror
// only leaves the intern record stale and is not an error.
func (h *IssueCertificateHandler) persistNumber(ctx context.Context, fb *feedback.Feedback, number string) error {
	issuedAt := h.now().UTC()

	if err := fb.SetCertificateNumber(number, issuedAt); err != nil {
		h.logger.Error("failed to set certificate number on feedback",
			slog.String("feedback_id", fb.ID),
			slog.String("error", err.Error()))
		return err
	}
	if err := h.feedbackRepo.Update(ctx, fb); err != nil {
		h.logger.Error("failed to persist certificate number on feedback",
			slog.String("feedback_id", fb.ID),
			slog.String("certificate_number", number),
			slog.String("error", err.Error()))
		return shared.StoreError("issuance", "persist_number", err)
	}

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(shared.NewCertificateIssuedEvent(fb.ID, string(fb.UniqueID), number))
	}

	h.mirrorToIntern(ctx, fb, number, issuedAt)
	return nil
}

// mirrorToIntern copies the issuance fields onto the intern record,
// looked up by unique ID. Best effort: every failure is logged and
// swallowed.
func (h *IssueCertificateHandler) mirrorToIntern(ctx context.Context, fb *feedback.Feedback, number string, issuedAt time.Time) {
	rec, err := h.internRepo.GetByUniqueID(ctx, fb.UniqueID)
	if err != nil {
		h.logger.Warn("certificate mirror skipped: intern record not found",
			slog.String("unique_id", string(fb.UniqueID)),
			slog.String("error", err.Error()))
		return
	}

	if err := rec.MarkCertificateIssued(number, issuedAt); err != nil {
		h.logger.Warn("certificate mirror skipped",
			slog.String("unique_id", string(fb.UniqueID)),
			slog.String("error", err.Error()))
		return
	}

	if err := h.internRepo.Update(ctx, rec); err != nil {
		h.logger.Warn("certificate mirror write failed, intern record is stale",
			slog.String("unique_id", string(fb.UniqueID)),
			slog.String("certificate_number", number),
			slog.String("error", err.Error()))
	}
}

// renderFields assembles the template payload from the snapshot fields.
// Only snapshot data goes into the certificate; the live intern record is
// never consulted.
func (h *IssueCertificateHandler) renderFields(fb *feedback.Feedback, number string) map[string]string {
	return map[string]string{
		"full_name":          fb.FullName,
		"domain":             fb.Domain,
		"duration":           fb.Duration,
		"start_month":        fb.StartMonth,
		"end_month":          fb.EndMonth,
		"unique_id":          string(fb.UniqueID),
		"certificate_number": number,
	}
}

func (h *IssueCertificateHandler) publishDeliveryFailed(fb *feedback.Feedback, reason string) {
	if h.eventPublisher == nil {
		return
	}
	_ = h.eventPublisher.Publish(shared.NewCertificateDeliveryFailedEvent(
		fb.ID, string(fb.UniqueID), fb.Email, reason))
}

// snapshot re-reads the feedback record and maps it to the return shape.
func (h *IssueCertificateHandler) snapshot(ctx context.Context, feedbackID string, deliveryFailed bool) (*FeedbackSnapshot, error) {
	fb, err := h.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return nil, err
	}

	return &FeedbackSnapshot{
		FeedbackID:          fb.ID,
		UniqueID:            string(fb.UniqueID),
		FullName:            fb.FullName,
		Email:               fb.Email,
		CertificateStatus:   fb.CertificateStatus,
		CertificateNumber:   fb.CertificateNumber,
		CertificateIssuedAt: fb.CertificateIssuedAt,
		DeliveryFailed:      deliveryFailed,
	}, nil
}
