package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/internhub/internship-back-office/internal/domain/intern"
	"github.com/internhub/internship-back-office/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXTEND INTERNSHIP COMMAND
// Adds extension days to an intern record. The accumulated total is
// monotonic; the next lifecycle sweep picks up the pushed-back end date
// and reactivates a completed record if the new date is in the future.
// ══════════════════════════════════════════════════════════════════════════════

// ExtendInternshipCommand contains the data for an extension.
type ExtendInternshipCommand struct {
	// UniqueID identifies the intern record.
	UniqueID intern.UniqueID

	// Days is the number of days to add. Must be positive.
	Days int
}

// Validate validates the command.
func (c ExtendInternshipCommand) Validate() error {
	if !c.UniqueID.IsValid() {
		return intern.ErrInvalidUniqueID
	}
	if c.Days <= 0 {
		return intern.ErrInvalidExtension
	}
	return nil
}

// ExtendInternshipResult contains the result of an extension.
type ExtendInternshipResult struct {
	// UniqueID of the extended record.
	UniqueID intern.UniqueID

	// AddedDays is the days added by this command.
	AddedDays int

	// TotalExtendedDays is the accumulated total after the write.
	TotalExtendedDays int

	// NewEndDate is the recomputed end date, when resolvable.
	NewEndDate string
	HasEndDate bool
}

// ExtendInternshipHandler handles ExtendInternshipCommand.
type ExtendInternshipHandler struct {
	internRepo     intern.Repository
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewExtendInternshipHandler creates a new ExtendInternshipHandler.
func NewExtendInternshipHandler(
	internRepo intern.Repository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *ExtendInternshipHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtendInternshipHandler{
		internRepo:     internRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the extension. The status is deliberately not touched
// here: the lifecycle sweep owns Active/Completed transitions, so a
// retroactive extension takes effect on the next sweep run.
func (h *ExtendInternshipHandler) Handle(ctx context.Context, cmd ExtendInternshipCommand) (*ExtendInternshipResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	rec, err := h.internRepo.GetByUniqueID(ctx, cmd.UniqueID)
	if err != nil {
		if errors.Is(err, intern.ErrInternNotFound) {
			return nil, err
		}
		return nil, shared.StoreError("intern", "extend", err)
	}

	if err := rec.Extend(cmd.Days); err != nil {
		return nil, err
	}

	if err := h.internRepo.Update(ctx, rec); err != nil {
		return nil, shared.StoreError("intern", "extend", err)
	}

	h.logger.Info("internship extended",
		slog.String("unique_id", string(rec.UniqueID)),
		slog.Int("added_days", cmd.Days),
		slog.Int("total_extended_days", rec.ExtendedDays))

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(shared.NewInternExtendedEvent(rec.ID, cmd.Days, rec.ExtendedDays))
	}

	result := &ExtendInternshipResult{
		UniqueID:          rec.UniqueID,
		AddedDays:         cmd.Days,
		TotalExtendedDays: rec.ExtendedDays,
	}
	if endDate, ok := rec.EndDate(); ok {
		result.NewEndDate = endDate.Format("2006-01-02")
		result.HasEndDate = true
	}

	return result, nil
}
