package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/internhub/internship-back-office/internal/domain/feedback"
	"github.com/internhub/internship-back-office/internal/domain/intern"
)

// FeedbackStore is an in-memory implementation of feedback.Repository.
type FeedbackStore struct {
	mu      sync.Mutex
	records map[string]*feedback.Feedback // keyed by internal ID

	// UpdateErr, when set, is returned by Update and SetCertificateStatus.
	UpdateErr error
}

// NewFeedbackStore creates an empty FeedbackStore.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{records: make(map[string]*feedback.Feedback)}
}

// Create creates a feedback record, enforcing one per unique ID.
func (s *FeedbackStore) Create(ctx context.Context, fb *feedback.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[fb.ID]; ok {
		return feedback.ErrFeedbackAlreadyExists
	}
	for _, existing := range s.records {
		if existing.UniqueID == fb.UniqueID {
			return feedback.ErrFeedbackAlreadyExists
		}
	}

	s.records[fb.ID] = fb.Clone()
	return nil
}

// GetByID returns a feedback record by internal ID.
func (s *FeedbackStore) GetByID(ctx context.Context, id string) (*feedback.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fb, ok := s.records[id]
	if !ok {
		return nil, feedback.ErrFeedbackNotFound
	}
	return fb.Clone(), nil
}

// GetByUniqueID returns the feedback record for an intern.
func (s *FeedbackStore) GetByUniqueID(ctx context.Context, uniqueID intern.UniqueID) (*feedback.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fb := range s.records {
		if fb.UniqueID == uniqueID {
			return fb.Clone(), nil
		}
	}
	return nil, feedback.ErrFeedbackNotFound
}

// Update persists the full record.
func (s *FeedbackStore) Update(ctx context.Context, fb *feedback.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	if _, ok := s.records[fb.ID]; !ok {
		return feedback.ErrFeedbackNotFound
	}

	s.records[fb.ID] = fb.Clone()
	return nil
}

// SetCertificateStatus unconditionally writes the certificate status.
func (s *FeedbackStore) SetCertificateStatus(ctx context.Context, id string, status feedback.CertificateStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	fb, ok := s.records[id]
	if !ok {
		return feedback.ErrFeedbackNotFound
	}

	fb.CertificateStatus = status
	return nil
}

// MarkCertificateIssued conditionally flips the status to Issued. The flip
// happens under the store mutex, mirroring the row-level conditional
// UPDATE in the PostgreSQL implementation: exactly one concurrent caller
// observes won=true.
func (s *FeedbackStore) MarkCertificateIssued(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return false, s.UpdateErr
	}
	fb, ok := s.records[id]
	if !ok {
		return false, feedback.ErrFeedbackNotFound
	}

	if fb.CertificateStatus == feedback.StatusIssued {
		return false, nil
	}
	fb.CertificateStatus = feedback.StatusIssued
	return true, nil
}

// ExistsByCertificateNumber reports whether any record carries the number.
func (s *FeedbackStore) ExistsByCertificateNumber(ctx context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if number == "" {
		return false, nil
	}
	for _, fb := range s.records {
		if fb.CertificateNumber == number {
			return true, nil
		}
	}
	return false, nil
}

// ListByCertificateStatus returns every record with the given status.
func (s *FeedbackStore) ListByCertificateStatus(ctx context.Context, status feedback.CertificateStatus) ([]*feedback.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*feedback.Feedback
	for _, fb := range s.records {
		if fb.CertificateStatus == status {
			result = append(result, fb.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
