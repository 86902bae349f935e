// Package memory implements in-memory record stores. They back the engine
// tests and local development runs, and honor the same semantics as the
// PostgreSQL implementations: uniqueness violations, not-found errors, and
// the conditional certificate-status flip.
package memory

import (
	"context"
	"sync"

	"github.com/internhub/internship-back-office/internal/domain/intern"
)

// InternStore is an in-memory implementation of intern.Repository.
type InternStore struct {
	mu      sync.RWMutex
	records map[string]*intern.Intern // keyed by internal ID

	// UpdateErr, when set, is returned by Update. Lets tests simulate
	// store failures.
	UpdateErr error

	// Updates counts successful Update calls, for write-if-changed tests.
	Updates int
}

// NewInternStore creates an empty InternStore.
func NewInternStore() *InternStore {
	return &InternStore{records: make(map[string]*intern.Intern)}
}

// Create creates a new intern record.
func (s *InternStore) Create(ctx context.Context, i *intern.Intern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[i.ID]; ok {
		return intern.ErrInternAlreadyExists
	}
	for _, existing := range s.records {
		if existing.UniqueID == i.UniqueID || existing.Email == i.Email || existing.Mobile == i.Mobile {
			return intern.ErrInternAlreadyExists
		}
	}

	s.records[i.ID] = i.Clone()
	return nil
}

// GetByID returns an intern by internal ID.
func (s *InternStore) GetByID(ctx context.Context, id string) (*intern.Intern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.records[id]
	if !ok {
		return nil, intern.ErrInternNotFound
	}
	return i.Clone(), nil
}

// GetByUniqueID returns an intern by issuance-domain unique ID.
func (s *InternStore) GetByUniqueID(ctx context.Context, uniqueID intern.UniqueID) (*intern.Intern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, i := range s.records {
		if i.UniqueID == uniqueID {
			return i.Clone(), nil
		}
	}
	return nil, intern.ErrInternNotFound
}

// GetByEmail returns an intern by email.
func (s *InternStore) GetByEmail(ctx context.Context, email intern.Email) (*intern.Intern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, i := range s.records {
		if i.Email == email {
			return i.Clone(), nil
		}
	}
	return nil, intern.ErrInternNotFound
}

// GetByStatusIn returns all interns whose status is in the given set.
func (s *InternStore) GetByStatusIn(ctx context.Context, statuses ...intern.Status) ([]*intern.Intern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[intern.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var result []*intern.Intern
	for _, i := range s.records {
		if wanted[i.Status] {
			result = append(result, i.Clone())
		}
	}
	return result, nil
}

// Update persists the full record.
func (s *InternStore) Update(ctx context.Context, i *intern.Intern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	if _, ok := s.records[i.ID]; !ok {
		return intern.ErrInternNotFound
	}

	s.records[i.ID] = i.Clone()
	s.Updates++
	return nil
}

// ExistsByCertificateNumber reports whether any record carries the number.
func (s *InternStore) ExistsByCertificateNumber(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if number == "" {
		return false, nil
	}
	for _, i := range s.records {
		if i.CertificateNumber == number {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the total number of intern records.
func (s *InternStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
