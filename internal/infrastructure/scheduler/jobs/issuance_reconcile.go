package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/internhub/internship-back-office/internal/domain/feedback"
	"github.com/internhub/internship-back-office/internal/domain/intern"
	"github.com/internhub/internship-back-office/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUANCE RECONCILE JOB
// ══════════════════════════════════════════════════════════════════════════════

// CertificateReissuer re-runs the issuance pipeline for a record whose
// status flip succeeded but whose delivery or mirror did not. The
// application layer provides the implementation.
type CertificateReissuer interface {
	Reissue(ctx context.Context, feedbackID string) error
}

// IssuanceReconcileJob walks every issued feedback record and repairs
// the two inconsistencies the issuance pipeline deliberately leaves
// behind rather than failing the request:
//
//   - issued without a certificate number (render or delivery failed)
//   - issued with a number the intern record never mirrored
//
// Healthy records are read-only; only broken ones go back through the
// reissue path.
type IssuanceReconcileJob struct {
	feedbackRepo feedback.Repository
	internRepo   intern.Repository
	reissuer     CertificateReissuer
	logger       *slog.Logger

	config ReconcileConfig

	lastReport atomic.Value // *ReconcileReport

	now func() time.Time
}

// ReconcileConfig contains configuration for the reconcile job.
type ReconcileConfig struct {
	// Timeout bounds a single reconcile pass.
	Timeout time.Duration

	// MaxErrors caps the errors collected in the report.
	MaxErrors int
}

// DefaultReconcileConfig returns sensible defaults.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Timeout:   5 * time.Minute,
		MaxErrors: 100,
	}
}

// ReconcileReport contains statistics from a reconcile pass.
type ReconcileReport struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration

	// Scanned is the number of issued records examined.
	Scanned int

	// Repaired counts records sent back through the reissue path.
	Repaired int

	// Skipped counts broken records that cannot be repaired yet, such
	// as an issued feedback record with no matching intern record.
	Skipped int

	// Errors collects per-record failures. A failed record never stops
	// the pass; it is retried on the next one.
	Errors []error
}

// NewIssuanceReconcileJob creates the reconcile job.
func NewIssuanceReconcileJob(
	feedbackRepo feedback.Repository,
	internRepo intern.Repository,
	reissuer CertificateReissuer,
	config ReconcileConfig,
	logger *slog.Logger,
) *IssuanceReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultReconcileConfig().Timeout
	}
	if config.MaxErrors <= 0 {
		config.MaxErrors = DefaultReconcileConfig().MaxErrors
	}

	return &IssuanceReconcileJob{
		feedbackRepo: feedbackRepo,
		internRepo:   internRepo,
		reissuer:     reissuer,
		logger:       logger,
		config:       config,
		now:          time.Now,
	}
}

// Name implements scheduler.Job.
func (j *IssuanceReconcileJob) Name() string {
	return "issuance_reconcile"
}

// Description implements scheduler.Job.
func (j *IssuanceReconcileJob) Description() string {
	return "Repairs issued certificates left without a number or an intern mirror"
}

// Run implements scheduler.Job.
func (j *IssuanceReconcileJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	report, err := j.Reconcile(ctx)
	if err != nil {
		return err
	}

	if len(report.Errors) > 0 {
		return fmt.Errorf("issuance reconcile finished with %d record errors", len(report.Errors))
	}
	return nil
}

// Reconcile executes one pass and returns the full report. Only the
// initial record-store fetch is fatal; individual record failures are
// collected and reported.
func (j *IssuanceReconcileJob) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: j.now()}

	records, err := j.feedbackRepo.ListByCertificateStatus(ctx, feedback.StatusIssued)
	if err != nil {
		return nil, shared.StoreError("feedback", "reconcile", err)
	}

	for _, fb := range records {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, err)
			break
		}

		report.Scanned++

		repaired, err := j.reconcileOne(ctx, fb, report)
		if err != nil {
			if len(report.Errors) < j.config.MaxErrors {
				report.Errors = append(report.Errors, fmt.Errorf("record %s: %w", fb.UniqueID, err))
			}
			continue
		}
		if repaired {
			report.Repaired++
		}
	}

	report.CompletedAt = j.now()
	report.Duration = report.CompletedAt.Sub(report.StartedAt)
	j.lastReport.Store(report)

	j.logger.Info("issuance reconcile completed",
		slog.Int("scanned", report.Scanned),
		slog.Int("repaired", report.Repaired),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", len(report.Errors)),
		slog.Duration("duration", report.Duration))

	return report, nil
}

// reconcileOne inspects a single issued record and reissues it when it
// is broken. Returns whether a repair was attempted.
func (j *IssuanceReconcileJob) reconcileOne(ctx context.Context, fb *feedback.Feedback, report *ReconcileReport) (bool, error) {
	if !fb.NeedsReconciliation() {
		rec, err := j.internRepo.GetByUniqueID(ctx, fb.UniqueID)
		if err != nil {
			// An issued feedback record with no intern record has
			// nothing to mirror onto; leave it for the operator.
			report.Skipped++
			j.logger.Warn("reconcile skipped: no intern record for issued feedback",
				slog.String("unique_id", string(fb.UniqueID)),
				slog.String("error", err.Error()))
			return false, nil
		}
		if rec.CertificateNumber != "" {
			// Healthy: number persisted and mirrored.
			return false, nil
		}

		j.logger.Info("repairing stale intern mirror",
			slog.String("unique_id", string(fb.UniqueID)),
			slog.String("certificate_number", fb.CertificateNumber))
	} else {
		j.logger.Info("repairing issued certificate without a number",
			slog.String("unique_id", string(fb.UniqueID)),
			slog.String("feedback_id", fb.ID))
	}

	if err := j.reissuer.Reissue(ctx, fb.ID); err != nil {
		return false, err
	}
	return true, nil
}

// LastReport returns the report from the most recent pass, or nil when
// none has run yet.
func (j *IssuanceReconcileJob) LastReport() *ReconcileReport {
	report, _ := j.lastReport.Load().(*ReconcileReport)
	return report
}
