package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internship-back-office/internal/domain/shared"
)

// fakeChecker is a NumberChecker backed by a set of taken numbers.
type fakeChecker struct {
	taken map[string]bool
	err   error
	calls int
}

func (f *fakeChecker) ExistsByCertificateNumber(_ context.Context, number string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.taken[number], nil
}

func newAllocator(t *testing.T, cfg AllocatorConfig, primary, mirror NumberChecker) *CertificateAllocator {
	t.Helper()
	return NewCertificateAllocator(cfg, primary, mirror, nil)
}

func TestCertificateAllocator_Format(t *testing.T) {
	alloc := newAllocator(t, DefaultAllocatorConfig(), &fakeChecker{}, nil)

	number, err := alloc.Allocate(context.Background())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^108\d{6}$`), number)
}

func TestCertificateAllocator_PreservesLeadingZeros(t *testing.T) {
	alloc := newAllocator(t, DefaultAllocatorConfig(), &fakeChecker{}, nil)
	alloc.suffixFn = func(digits int) (string, error) {
		return "000042", nil
	}

	number, err := alloc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "108000042", number)
}

func TestCertificateAllocator_RetriesOnCollision(t *testing.T) {
	primary := &fakeChecker{taken: map[string]bool{"108000001": true, "108000002": true}}
	alloc := newAllocator(t, DefaultAllocatorConfig(), primary, nil)

	attempt := 0
	alloc.suffixFn = func(digits int) (string, error) {
		attempt++
		return "00000" + strconv.Itoa(attempt), nil
	}

	number, err := alloc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "108000003", number)
	assert.Equal(t, 3, primary.calls)
}

func TestCertificateAllocator_ChecksMirrorStore(t *testing.T) {
	primary := &fakeChecker{}
	mirror := &fakeChecker{taken: map[string]bool{"108000001": true}}
	alloc := newAllocator(t, DefaultAllocatorConfig(), primary, mirror)

	attempt := 0
	alloc.suffixFn = func(digits int) (string, error) {
		attempt++
		return "00000" + strconv.Itoa(attempt), nil
	}

	number, err := alloc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "108000002", number, "number taken in the mirror store must be skipped")
}

func TestCertificateAllocator_EpochFallback(t *testing.T) {
	cfg := DefaultAllocatorConfig()
	cfg.MaxAttempts = 5

	alloc := newAllocator(t, cfg, &fakeChecker{}, nil)
	alloc.suffixFn = func(digits int) (string, error) {
		return "999999", nil
	}
	// Every candidate collides.
	alloc.primary = &fakeChecker{taken: map[string]bool{"108999999": true}}
	alloc.now = func() time.Time {
		// Unix 1717243200: low six digits 243200.
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	number, err := alloc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "108243200", number, "fallback keeps the configured width")
}

func TestCertificateAllocator_EpochFallbackZeroPads(t *testing.T) {
	cfg := DefaultAllocatorConfig()
	cfg.MaxAttempts = 2

	alloc := newAllocator(t, cfg, &fakeChecker{}, nil)
	alloc.suffixFn = func(digits int) (string, error) {
		return "999999", nil
	}
	alloc.primary = &fakeChecker{taken: map[string]bool{"108999999": true}}
	alloc.now = func() time.Time {
		// Unix 1700000045: low six digits 000045.
		return time.Unix(1700000045, 0).UTC()
	}

	number, err := alloc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "108000045", number)
}

func TestCertificateAllocator_ExhaustionWithoutFallback(t *testing.T) {
	cfg := DefaultAllocatorConfig()
	cfg.MaxAttempts = 3
	cfg.AllowFallback = false

	alloc := newAllocator(t, cfg, &fakeChecker{taken: map[string]bool{"108111111": true}}, nil)
	alloc.suffixFn = func(digits int) (string, error) {
		return "111111", nil
	}

	_, err := alloc.Allocate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrAllocationExhausted))
}

func TestCertificateAllocator_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	alloc := newAllocator(t, DefaultAllocatorConfig(), &fakeChecker{err: storeErr}, nil)

	_, err := alloc.Allocate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrStore))
	assert.True(t, errors.Is(err, storeErr))
}

func TestCertificateAllocator_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alloc := newAllocator(t, DefaultAllocatorConfig(), &fakeChecker{}, nil)

	_, err := alloc.Allocate(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
