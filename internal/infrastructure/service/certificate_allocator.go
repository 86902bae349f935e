package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/internhub/internship-back-office/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE NUMBER ALLOCATOR
// ══════════════════════════════════════════════════════════════════════════════

// NumberChecker reports whether a candidate certificate number is already
// taken in a record store. Both the feedback and intern repositories
// satisfy this through ExistsByCertificateNumber.
type NumberChecker interface {
	ExistsByCertificateNumber(ctx context.Context, number string) (bool, error)
}

// AllocatorConfig controls certificate number generation.
type AllocatorConfig struct {
	// Prefix is the organization code every number starts with.
	Prefix string

	// SuffixDigits is the width of the random numeric suffix.
	SuffixDigits int

	// MaxAttempts bounds the generate-and-check loop.
	MaxAttempts int

	// AllowFallback enables the epoch-based fallback number when all
	// random attempts collide. When false, exhaustion is an error.
	AllowFallback bool
}

// DefaultAllocatorConfig returns the standard production configuration.
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		Prefix:        "108",
		SuffixDigits:  6,
		MaxAttempts:   20,
		AllowFallback: true,
	}
}

// CertificateAllocator produces unique certificate numbers of the form
// prefix + fixed-width random suffix, e.g. "108123456". Uniqueness is
// checked against the feedback store first (the issuance authority) and
// then the intern store; the database's unique index remains the final
// arbiter under concurrency.
type CertificateAllocator struct {
	config   AllocatorConfig
	primary  NumberChecker
	mirror   NumberChecker
	logger   *slog.Logger
	now      func() time.Time
	suffixFn func(digits int) (string, error)
}

// NewCertificateAllocator creates an allocator. The mirror checker may be
// nil when only one store holds certificate numbers.
func NewCertificateAllocator(config AllocatorConfig, primary NumberChecker, mirror NumberChecker, logger *slog.Logger) *CertificateAllocator {
	if config.Prefix == "" {
		config.Prefix = "108"
	}
	if config.SuffixDigits <= 0 {
		config.SuffixDigits = 6
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CertificateAllocator{
		config:   config,
		primary:  primary,
		mirror:   mirror,
		logger:   logger,
		now:      time.Now,
		suffixFn: randomSuffix,
	}
}

// Allocate returns a certificate number not present in either store.
// When every random attempt collides, it falls back to an epoch-derived
// number (if enabled) so issuance never blocks on bad luck.
func (a *CertificateAllocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= a.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		suffix, err := a.suffixFn(a.config.SuffixDigits)
		if err != nil {
			return "", fmt.Errorf("failed to generate certificate suffix: %w", err)
		}
		candidate := a.config.Prefix + suffix

		taken, err := a.isTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}

		a.logger.Debug("certificate number collision",
			slog.String("candidate", candidate),
			slog.Int("attempt", attempt))
	}

	if !a.config.AllowFallback {
		return "", shared.NewDomainError("issuance", "allocate", shared.ErrAllocationExhausted,
			fmt.Sprintf("no free certificate number after %d attempts", a.config.MaxAttempts))
	}

	// Epoch fallback: the low-order digits of the current second keep the
	// number at its usual width. Two exhausted allocations in the same
	// second still collide, which the store's unique index catches.
	mod := int64(1)
	for i := 0; i < a.config.SuffixDigits; i++ {
		mod *= 10
	}
	fallback := fmt.Sprintf("%s%0*d", a.config.Prefix, a.config.SuffixDigits, a.now().Unix()%mod)
	a.logger.Warn("certificate number allocation exhausted, using epoch fallback",
		slog.Int("attempts", a.config.MaxAttempts),
		slog.String("fallback", fallback))

	return fallback, nil
}

func (a *CertificateAllocator) isTaken(ctx context.Context, candidate string) (bool, error) {
	taken, err := a.primary.ExistsByCertificateNumber(ctx, candidate)
	if err != nil {
		return false, shared.StoreError("issuance", "allocate", err)
	}
	if taken {
		return true, nil
	}

	if a.mirror != nil {
		taken, err = a.mirror.ExistsByCertificateNumber(ctx, candidate)
		if err != nil {
			return false, shared.StoreError("issuance", "allocate", err)
		}
	}
	return taken, nil
}

// randomSuffix returns a crypto-random numeric string of exactly the
// given width, leading zeros included.
func randomSuffix(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
