package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internship-back-office/internal/domain/feedback"
	"github.com/internhub/internship-back-office/internal/domain/intern"
	"github.com/internhub/internship-back-office/internal/domain/shared"
	"github.com/internhub/internship-back-office/internal/infrastructure/persistence/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test doubles
// ─────────────────────────────────────────────────────────────────────────────

type stubAllocator struct {
	mu      sync.Mutex
	next    int
	err     error
	numbers []string
}

func (a *stubAllocator) Allocate(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.next++
	number := fmt.Sprintf("108%06d", a.next)
	a.numbers = append(a.numbers, number)
	return number, nil
}

type stubRenderer struct {
	mu     sync.Mutex
	err    error
	calls  int
	fields map[string]string
}

func (r *stubRenderer) Render(ctx context.Context, fields map[string]string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.fields = fields
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.7 certificate"), nil
}

type sentMail struct {
	to       string
	subject  string
	filename string
}

type stubMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (m *stubMailer) Send(ctx context.Context, to, subject, body string, attachment []byte, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, filename: filename})
	return nil
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

type fixture struct {
	feedbackStore *memory.FeedbackStore
	internStore   *memory.InternStore
	allocator     *stubAllocator
	renderer      *stubRenderer
	mailer        *stubMailer
	handler       *IssueCertificateHandler
	fb            *feedback.Feedback
}

func setup(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		feedbackStore: memory.NewFeedbackStore(),
		internStore:   memory.NewInternStore(),
		allocator:     &stubAllocator{},
		renderer:      &stubRenderer{},
		mailer:        &stubMailer{},
	}

	rec, err := intern.NewIntern(intern.NewInternParams{
		ID:          "intern-1",
		UniqueID:    "INT-001",
		FullName:    "Jane Intern",
		Email:       "jane@example.com",
		Domain:      "Backend Engineering",
		RawDuration: "3 Months",
	})
	require.NoError(t, err)
	require.NoError(t, rec.Activate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, rec.Complete())
	require.NoError(t, f.internStore.Create(context.Background(), rec))

	fb, err := feedback.NewFeedback(feedback.NewFeedbackParams{
		ID:         "fb-1",
		UniqueID:   "INT-001",
		FullName:   "Jane Intern",
		Email:      "jane@example.com",
		Domain:     "Backend Engineering",
		Duration:   "3 Months",
		StartMonth: "January 2024",
		EndMonth:   "April 2024",
		Rating:     5,
		Comments:   "Great program",
	})
	require.NoError(t, err)
	require.NoError(t, f.feedbackStore.Create(context.Background(), fb))
	f.fb = fb

	f.handler = NewIssueCertificateHandler(
		f.feedbackStore, f.internStore,
		f.allocator, f.renderer, f.mailer,
		nil, nil,
	)
	return f
}

func issue(t *testing.T, f *fixture) *FeedbackSnapshot {
	t.Helper()
	snap, err := f.handler.Handle(context.Background(), SetCertificateStatusCommand{
		FeedbackID: "fb-1",
		NewStatus:  feedback.StatusIssued,
	})
	require.NoError(t, err)
	return snap
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestIssueCertificate_HappyPath(t *testing.T) {
	f := setup(t)

	snap := issue(t, f)

	assert.Equal(t, feedback.StatusIssued, snap.CertificateStatus)
	assert.Equal(t, "108000001", snap.CertificateNumber)
	require.NotNil(t, snap.CertificateIssuedAt)
	assert.False(t, snap.DeliveryFailed)

	// Render payload comes from the snapshot, certificate number included.
	assert.Equal(t, "Jane Intern", f.renderer.fields["full_name"])
	assert.Equal(t, "January 2024", f.renderer.fields["start_month"])
	assert.Equal(t, "108000001", f.renderer.fields["certificate_number"])

	// One mail, to the snapshot address.
	require.Equal(t, 1, f.mailer.count())
	assert.Equal(t, "jane@example.com", f.mailer.sent[0].to)

	// Mirror landed on the intern record.
	rec, err := f.internStore.GetByUniqueID(context.Background(), "INT-001")
	require.NoError(t, err)
	assert.Equal(t, "108000001", rec.CertificateNumber)
	assert.Equal(t, intern.CertificateIssued, rec.CertificateStatus)
}

func TestIssueCertificate_SecondCallIsIdempotent(t *testing.T) {
	f := setup(t)

	first := issue(t, f)
	second := issue(t, f)

	assert.Equal(t, first.CertificateNumber, second.CertificateNumber)
	assert.Equal(t, 1, f.renderer.calls, "no second render")
	assert.Equal(t, 1, f.mailer.count(), "no second mail")
}

func TestIssueCertificate_RenderFailureIsContained(t *testing.T) {
	f := setup(t)
	f.renderer.err = errors.New("template missing")

	snap := issue(t, f)

	// Status flipped, no number: the reconcilable state.
	assert.Equal(t, feedback.StatusIssued, snap.CertificateStatus)
	assert.Empty(t, snap.CertificateNumber)
	assert.True(t, snap.DeliveryFailed)
	assert.Equal(t, 0, f.mailer.count())

	fb, err := f.feedbackStore.GetByID(context.Background(), "fb-1")
	require.NoError(t, err)
	assert.True(t, fb.NeedsReconciliation())
}

func TestIssueCertificate_DeliveryFailureIsContained(t *testing.T) {
	f := setup(t)
	f.mailer.err = errors.New("smtp relay down")

	snap := issue(t, f)

	assert.Equal(t, feedback.StatusIssued, snap.CertificateStatus)
	assert.Empty(t, snap.CertificateNumber)
	assert.True(t, snap.DeliveryFailed)

	// Intern record untouched.
	rec, err := f.internStore.GetByUniqueID(context.Background(), "INT-001")
	require.NoError(t, err)
	assert.Empty(t, rec.CertificateNumber)
}

func TestIssueCertificate_AllocationFailureAbortsButKeepsFlip(t *testing.T) {
	f := setup(t)
	f.allocator.err = errors.New("store unreachable")

	_, err := f.handler.Handle(context.Background(), SetCertificateStatusCommand{
		FeedbackID: "fb-1",
		NewStatus:  feedback.StatusIssued,
	})
	require.Error(t, err)

	// The flip from step 1 is not rolled back.
	fb, getErr := f.feedbackStore.GetByID(context.Background(), "fb-1")
	require.NoError(t, getErr)
	assert.Equal(t, feedback.StatusIssued, fb.CertificateStatus)
	assert.Equal(t, 0, f.renderer.calls)
}

func TestIssueCertificate_MirrorFailureDoesNotFailRequest(t *testing.T) {
	f := setup(t)
	f.internStore.UpdateErr = errors.New("write failed")

	snap := issue(t, f)

	// Feedback record is authoritative and fully written.
	assert.Equal(t, "108000001", snap.CertificateNumber)
	assert.False(t, snap.DeliveryFailed)

	// Intern record is stale, which is the accepted outcome.
	rec, err := f.internStore.GetByUniqueID(context.Background(), "INT-001")
	require.NoError(t, err)
	assert.Empty(t, rec.CertificateNumber)
}

func TestIssueCertificate_RejectedStatusIsPlainWrite(t *testing.T) {
	f := setup(t)

	snap, err := f.handler.Handle(context.Background(), SetCertificateStatusCommand{
		FeedbackID: "fb-1",
		NewStatus:  feedback.StatusRejected,
	})
	require.NoError(t, err)

	assert.Equal(t, feedback.StatusRejected, snap.CertificateStatus)
	assert.Empty(t, snap.CertificateNumber)
	assert.Equal(t, 0, f.renderer.calls)
	assert.Equal(t, 0, f.mailer.count())
}

func TestIssueCertificate_UnknownFeedback(t *testing.T) {
	f := setup(t)

	_, err := f.handler.Handle(context.Background(), SetCertificateStatusCommand{
		FeedbackID: "missing",
		NewStatus:  feedback.StatusIssued,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, feedback.ErrFeedbackNotFound))
}

func TestIssueCertificate_InvalidCommand(t *testing.T) {
	f := setup(t)

	_, err := f.handler.Handle(context.Background(), SetCertificateStatusCommand{
		FeedbackID: "fb-1",
		NewStatus:  "archived",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, feedback.ErrInvalidCertificateStatus))
}

type stubGuard struct {
	mu       sync.Mutex
	acquired []string
	released []string
	err      error
}

func (g *stubGuard) Acquire(ctx context.Context, feedbackID, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.acquired = append(g.acquired, feedbackID)
	return nil
}

func (g *stubGuard) Release(ctx context.Context, feedbackID, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released = append(g.released, feedbackID)
	return nil
}

func TestIssueCertificate_GuardIsAcquiredAndReleased(t *testing.T) {
	f := setup(t)
	guard := &stubGuard{}
	f.handler.WithGuard(guard)

	snap := issue(t, f)

	assert.Equal(t, "108000001", snap.CertificateNumber)
	assert.Equal(t, []string{"fb-1"}, guard.acquired)
	assert.Equal(t, []string{"fb-1"}, guard.released)
}

func TestIssueCertificate_HeldGuardFailsRequest(t *testing.T) {
	f := setup(t)
	f.handler.WithGuard(&stubGuard{err: errors.New("lock held by another worker")})

	_, err := f.handler.Handle(context.Background(), SetCertificateStatusCommand{
		FeedbackID: "fb-1",
		NewStatus:  feedback.StatusIssued,
	})
	require.Error(t, err)

	// Nothing happened: no flip, no render, no mail.
	fb, getErr := f.feedbackStore.GetByID(context.Background(), "fb-1")
	require.NoError(t, getErr)
	assert.Equal(t, feedback.StatusPending, fb.CertificateStatus)
	assert.Equal(t, 0, f.renderer.calls)
	assert.Equal(t, 0, f.mailer.count())
}

func TestIssueCertificate_ConcurrentRequestsSendOneMail(t *testing.T) {
	f := setup(t)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, _ = f.handler.Handle(context.Background(), SetCertificateStatusCommand{
				FeedbackID: "fb-1",
				NewStatus:  feedback.StatusIssued,
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.mailer.count(), "conditional flip must admit exactly one issuance")
	assert.Equal(t, 1, f.renderer.calls)
}

// failingUpdateStore fails Update only; every other operation passes
// through, so the conditional flip and reads behave normally.
type failingUpdateStore struct {
	*memory.FeedbackStore
	updateErr error
}

func (s *failingUpdateStore) Update(ctx context.Context, fb *feedback.Feedback) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.FeedbackStore.Update(ctx, fb)
}

func TestIssueCertificate_NumberPersistFailureSurfaces(t *testing.T) {
	f := setup(t)
	cause := errors.New("connection reset")
	store := &failingUpdateStore{FeedbackStore: f.feedbackStore, updateErr: cause}
	handler := NewIssueCertificateHandler(
		store, f.internStore,
		f.allocator, f.renderer, f.mailer,
		nil, nil,
	)

	_, err := handler.Handle(context.Background(), SetCertificateStatusCommand{
		FeedbackID: "fb-1",
		NewStatus:  feedback.StatusIssued,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStore)
	assert.ErrorIs(t, err, cause)

	// The mail went out and the flip stands; only the number write was
	// lost, leaving the record for the reconcile pass.
	assert.Equal(t, 1, f.mailer.count())
	fb, getErr := f.feedbackStore.GetByID(context.Background(), "fb-1")
	require.NoError(t, getErr)
	assert.Equal(t, feedback.StatusIssued, fb.CertificateStatus)
	assert.True(t, fb.NeedsReconciliation())
}

// ─────────────────────────────────────────────────────────────────────────────
// Reissue
// ─────────────────────────────────────────────────────────────────────────────

func TestReissue_RepairsRecordAfterDeliveryFailure(t *testing.T) {
	f := setup(t)
	f.mailer.err = errors.New("mail relay down")

	snap := issue(t, f)
	require.True(t, snap.DeliveryFailed)
	require.Empty(t, snap.CertificateNumber)

	// Relay recovers; the reconcile pass retries.
	f.mailer.err = nil
	require.NoError(t, f.handler.Reissue(context.Background(), "fb-1"))

	fb, err := f.feedbackStore.GetByID(context.Background(), "fb-1")
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusIssued, fb.CertificateStatus)
	assert.NotEmpty(t, fb.CertificateNumber)
	assert.False(t, fb.NeedsReconciliation())

	rec, err := f.internStore.GetByUniqueID(context.Background(), "INT-001")
	require.NoError(t, err)
	assert.Equal(t, fb.CertificateNumber, rec.CertificateNumber)
}

func TestReissue_RepeatedFailureSurfacesAsError(t *testing.T) {
	f := setup(t)
	f.mailer.err = errors.New("mail relay down")

	snap := issue(t, f)
	require.True(t, snap.DeliveryFailed)

	err := f.handler.Reissue(context.Background(), "fb-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrDelivery)

	fb, getErr := f.feedbackStore.GetByID(context.Background(), "fb-1")
	require.NoError(t, getErr)
	assert.True(t, fb.NeedsReconciliation())
}

func TestReissue_MirrorOnlyRepairSendsNoMail(t *testing.T) {
	f := setup(t)

	snap := issue(t, f)
	require.NotEmpty(t, snap.CertificateNumber)

	// Wipe the mirror to simulate a crash between the two writes.
	rec, err := f.internStore.GetByUniqueID(context.Background(), "INT-001")
	require.NoError(t, err)
	rec.CertificateNumber = ""
	rec.CertificateStatus = intern.CertificatePending
	require.NoError(t, f.internStore.Update(context.Background(), rec))

	mailsBefore := f.mailer.count()
	require.NoError(t, f.handler.Reissue(context.Background(), "fb-1"))

	assert.Equal(t, mailsBefore, f.mailer.count(), "mirror repair must not redeliver")

	rec, err = f.internStore.GetByUniqueID(context.Background(), "INT-001")
	require.NoError(t, err)
	assert.Equal(t, snap.CertificateNumber, rec.CertificateNumber)
	assert.Equal(t, intern.CertificateIssued, rec.CertificateStatus)
}

func TestReissue_RejectsNonIssuedRecord(t *testing.T) {
	f := setup(t)

	err := f.handler.Reissue(context.Background(), "fb-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}
