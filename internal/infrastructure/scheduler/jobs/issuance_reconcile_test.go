package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internship-back-office/internal/domain/feedback"
	"github.com/internhub/internship-back-office/internal/domain/intern"
	"github.com/internhub/internship-back-office/internal/infrastructure/persistence/memory"
)

type stubReissuer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *stubReissuer) Reissue(ctx context.Context, feedbackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, feedbackID)
	return s.err
}

func seedIssuedFeedback(t *testing.T, store *memory.FeedbackStore, id, uniqueID, number string) {
	t.Helper()

	fb, err := feedback.NewFeedback(feedback.NewFeedbackParams{
		ID:         id,
		UniqueID:   intern.UniqueID(uniqueID),
		FullName:   "Intern " + uniqueID,
		Email:      uniqueID + "@example.com",
		Domain:     "Backend Engineering",
		Duration:   "3 Months",
		StartMonth: "January 2024",
		EndMonth:   "April 2024",
		Rating:     5,
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), fb))

	won, err := store.MarkCertificateIssued(context.Background(), id)
	require.NoError(t, err)
	require.True(t, won)

	if number != "" {
		fb, err = store.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NoError(t, fb.SetCertificateNumber(number, time.Now().UTC()))
		require.NoError(t, store.Update(context.Background(), fb))
	}
}

func TestReconcile_HealthyRecordIsLeftAlone(t *testing.T) {
	feedbackStore := memory.NewFeedbackStore()
	internStore := memory.NewInternStore()
	reissuer := &stubReissuer{}

	seedIssuedFeedback(t, feedbackStore, "fb-1", "INT-001", "108000001")
	rec := seedIntern(t, internStore, "INT-001", intern.StatusCompleted, date(2024, 1, 1), "3 Months", 0)
	require.NoError(t, rec.MarkCertificateIssued("108000001", time.Now().UTC()))
	require.NoError(t, internStore.Update(context.Background(), rec))

	job := NewIssuanceReconcileJob(feedbackStore, internStore, reissuer, DefaultReconcileConfig(), nil)

	report, err := job.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 0, report.Repaired)
	assert.Empty(t, reissuer.calls)
}

func TestReconcile_RepairsIssuedWithoutNumber(t *testing.T) {
	feedbackStore := memory.NewFeedbackStore()
	internStore := memory.NewInternStore()
	reissuer := &stubReissuer{}

	seedIssuedFeedback(t, feedbackStore, "fb-1", "INT-001", "")
	seedIntern(t, internStore, "INT-001", intern.StatusCompleted, date(2024, 1, 1), "3 Months", 0)

	job := NewIssuanceReconcileJob(feedbackStore, internStore, reissuer, DefaultReconcileConfig(), nil)

	report, err := job.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, []string{"fb-1"}, reissuer.calls)
}

func TestReconcile_RepairsStaleInternMirror(t *testing.T) {
	feedbackStore := memory.NewFeedbackStore()
	internStore := memory.NewInternStore()
	reissuer := &stubReissuer{}

	// Number persisted on the feedback side, never mirrored.
	seedIssuedFeedback(t, feedbackStore, "fb-1", "INT-001", "108000001")
	seedIntern(t, internStore, "INT-001", intern.StatusCompleted, date(2024, 1, 1), "3 Months", 0)

	job := NewIssuanceReconcileJob(feedbackStore, internStore, reissuer, DefaultReconcileConfig(), nil)

	report, err := job.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, []string{"fb-1"}, reissuer.calls)
}

func TestReconcile_SkipsIssuedFeedbackWithoutInternRecord(t *testing.T) {
	feedbackStore := memory.NewFeedbackStore()
	internStore := memory.NewInternStore()
	reissuer := &stubReissuer{}

	seedIssuedFeedback(t, feedbackStore, "fb-1", "INT-001", "108000001")

	job := NewIssuanceReconcileJob(feedbackStore, internStore, reissuer, DefaultReconcileConfig(), nil)

	report, err := job.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Repaired)
	assert.Empty(t, reissuer.calls)
}

func TestReconcile_IgnoresPendingRecords(t *testing.T) {
	feedbackStore := memory.NewFeedbackStore()
	internStore := memory.NewInternStore()
	reissuer := &stubReissuer{}

	fb, err := feedback.NewFeedback(feedback.NewFeedbackParams{
		ID:         "fb-1",
		UniqueID:   "INT-001",
		FullName:   "Intern INT-001",
		Email:      "int-001@example.com",
		Domain:     "Backend Engineering",
		Duration:   "3 Months",
		StartMonth: "January 2024",
		EndMonth:   "April 2024",
		Rating:     4,
	})
	require.NoError(t, err)
	require.NoError(t, feedbackStore.Create(context.Background(), fb))

	job := NewIssuanceReconcileJob(feedbackStore, internStore, reissuer, DefaultReconcileConfig(), nil)

	report, err := job.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Scanned)
	assert.Empty(t, reissuer.calls)
}

func TestReconcile_ReissueFailureIsCollectedNotFatal(t *testing.T) {
	feedbackStore := memory.NewFeedbackStore()
	internStore := memory.NewInternStore()
	reissuer := &stubReissuer{err: errors.New("mail relay still down")}

	seedIssuedFeedback(t, feedbackStore, "fb-1", "INT-001", "")
	seedIssuedFeedback(t, feedbackStore, "fb-2", "INT-002", "")

	job := NewIssuanceReconcileJob(feedbackStore, internStore, reissuer, DefaultReconcileConfig(), nil)

	report, err := job.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 0, report.Repaired)
	assert.Len(t, report.Errors, 2)
	assert.Len(t, reissuer.calls, 2)

	// Run surfaces the collected errors as a single failure.
	assert.Error(t, job.Run(context.Background()))
}

func TestReconcile_LastReport(t *testing.T) {
	feedbackStore := memory.NewFeedbackStore()
	internStore := memory.NewInternStore()
	job := NewIssuanceReconcileJob(feedbackStore, internStore, &stubReissuer{}, DefaultReconcileConfig(), nil)

	assert.Nil(t, job.LastReport())

	_, err := job.Reconcile(context.Background())
	require.NoError(t, err)

	require.NotNil(t, job.LastReport())
	assert.Equal(t, 0, job.LastReport().Scanned)
}
