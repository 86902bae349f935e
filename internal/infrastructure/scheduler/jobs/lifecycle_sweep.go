// Package jobs contains implementations of scheduled jobs for the
// internship back office.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/internhub/internship-back-office/internal/domain/intern"
	"github.com/internhub/internship-back-office/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE SWEEP JOB
// ══════════════════════════════════════════════════════════════════════════════

// LifecycleSweepJob reconciles intern statuses with their computed
// internship windows. It walks every tracked record and applies two
// transitions:
//
//   - Active interns whose end date has passed become Completed.
//   - Completed interns whose end date moved back into the future
//     (a retroactive extension) become Active again.
//
// The sweep is the single authority for these transitions; nothing else
// in the system flips interns between Active and Completed.
type LifecycleSweepJob struct {
	internRepo     intern.Repository
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	config SweepConfig

	// now is replaceable in tests.
	now func() time.Time

	lastReport atomic.Value // *SweepReport
}

// SweepConfig contains configuration for the lifecycle sweep.
type SweepConfig struct {
	// Timeout bounds a single sweep run.
	Timeout time.Duration

	// MaxErrors aborts the sweep early when too many records fail in a
	// row is not tracked; this caps the total errors collected in the
	// report to keep it bounded.
	MaxErrors int
}

// DefaultSweepConfig returns sensible defaults.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Timeout:   5 * time.Minute,
		MaxErrors: 100,
	}
}

// SweepReport contains statistics from a sweep run.
type SweepReport struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration

	// Scanned is the number of tracked records examined.
	Scanned int

	// Transitioned is Completed + Reactivated.
	Transitioned int

	// Completed counts Active -> Completed transitions.
	Completed int

	// Reactivated counts Completed -> Active transitions.
	Reactivated int

	// Skipped counts records with no joining date, whose end date
	// cannot be computed.
	Skipped int

	// Errors collects per-record failures. A failed record never stops
	// the sweep.
	Errors []error
}

// NewLifecycleSweepJob creates the sweep job.
func NewLifecycleSweepJob(
	internRepo intern.Repository,
	eventPublisher shared.EventPublisher,
	config SweepConfig,
	logger *slog.Logger,
) *LifecycleSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultSweepConfig().Timeout
	}
	if config.MaxErrors <= 0 {
		config.MaxErrors = DefaultSweepConfig().MaxErrors
	}

	return &LifecycleSweepJob{
		internRepo:     internRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
		now:            time.Now,
	}
}

// Name implements scheduler.Job.
func (j *LifecycleSweepJob) Name() string {
	return "lifecycle_sweep"
}

// Description implements scheduler.Job.
func (j *LifecycleSweepJob) Description() string {
	return "Reconciles intern statuses with their computed internship end dates"
}

// Run implements scheduler.Job.
func (j *LifecycleSweepJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	report, err := j.Sweep(ctx)
	if err != nil {
		return err
	}

	if len(report.Errors) > 0 {
		return fmt.Errorf("lifecycle sweep finished with %d record errors", len(report.Errors))
	}
	return nil
}

// Sweep executes one reconciliation pass and returns the full report.
// Only the initial record-store fetch is fatal; individual record
// failures are collected and reported.
func (j *LifecycleSweepJob) Sweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{StartedAt: j.now()}

	records, err := j.internRepo.GetByStatusIn(ctx, intern.StatusActive, intern.StatusCompleted)
	if err != nil {
		return nil, shared.StoreError("intern", "sweep", err)
	}

	today := j.today()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, err)
			break
		}

		report.Scanned++

		changed, err := j.sweepOne(ctx, rec, today, report)
		if err != nil {
			if len(report.Errors) < j.config.MaxErrors {
				report.Errors = append(report.Errors, fmt.Errorf("record %s: %w", rec.UniqueID, err))
			}
			continue
		}
		if changed {
			report.Transitioned++
		}
	}

	report.CompletedAt = j.now()
	report.Duration = report.CompletedAt.Sub(report.StartedAt)
	j.lastReport.Store(report)

	j.logger.Info("lifecycle sweep completed",
		slog.Int("scanned", report.Scanned),
		slog.Int("completed", report.Completed),
		slog.Int("reactivated", report.Reactivated),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", len(report.Errors)),
		slog.Duration("duration", report.Duration))

	if j.eventPublisher != nil {
		_ = j.eventPublisher.Publish(shared.NewSweepCompletedEvent(
			report.Scanned, report.Transitioned, len(report.Errors)))
	}

	return report, nil
}

// sweepOne applies the lifecycle rules to a single record. Returns
// whether the record's status changed. Records are only written when a
// transition actually happened.
func (j *LifecycleSweepJob) sweepOne(ctx context.Context, rec *intern.Intern, today time.Time, report *SweepReport) (bool, error) {
	endDate, ok := rec.EndDate()
	if !ok {
		// No joining date: the window cannot be computed, so the record
		// is left untouched.
		report.Skipped++
		j.logger.Debug("sweep skipped record without joining date",
			slog.String("unique_id", string(rec.UniqueID)))
		return false, nil
	}

	if !rec.Duration.IsKnown() {
		// Unrecognized labels resolve to zero added months. The record
		// still sweeps, but the window is almost certainly wrong.
		j.logger.Warn("sweeping record with unrecognized duration label",
			slog.String("unique_id", string(rec.UniqueID)),
			slog.String("duration", rec.RawDuration))
	}

	switch rec.Status {
	case intern.StatusActive:
		// A record completes on its end date, not the day after.
		if today.Before(endDate) {
			return false, nil
		}
		if err := rec.Complete(); err != nil {
			return false, err
		}
		if err := j.internRepo.Update(ctx, rec); err != nil {
			return false, err
		}
		report.Completed++
		j.logger.Info("intern completed",
			slog.String("unique_id", string(rec.UniqueID)),
			slog.Time("end_date", endDate))
		if j.eventPublisher != nil {
			_ = j.eventPublisher.Publish(shared.NewInternCompletedEvent(rec.ID, string(rec.UniqueID), endDate))
		}
		return true, nil

	case intern.StatusCompleted:
		// A late-arriving extension can push the end date back into the
		// future; the record returns to Active until the new date
		// passes. Without extension days the completion is final.
		if rec.ExtendedDays <= 0 || !today.Before(endDate) {
			return false, nil
		}
		if err := rec.Reactivate(); err != nil {
			return false, err
		}
		if err := j.internRepo.Update(ctx, rec); err != nil {
			return false, err
		}
		report.Reactivated++
		j.logger.Info("intern reactivated",
			slog.String("unique_id", string(rec.UniqueID)),
			slog.Time("end_date", endDate))
		if j.eventPublisher != nil {
			_ = j.eventPublisher.Publish(shared.NewInternReactivatedEvent(rec.ID, string(rec.UniqueID), endDate))
		}
		return true, nil

	default:
		// GetByStatusIn should never hand us anything else.
		return false, nil
	}
}

// today returns the current date truncated to midnight UTC; lifecycle
// comparisons are date-granular, not instant-granular.
func (j *LifecycleSweepJob) today() time.Time {
	now := j.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// LastReport returns the report from the most recent sweep, if any.
func (j *LifecycleSweepJob) LastReport() (*SweepReport, bool) {
	report, ok := j.lastReport.Load().(*SweepReport)
	return report, ok
}
