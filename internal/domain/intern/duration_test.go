package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/internhub/internship-back-office/pkg/timeutil"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		label    string
		expected Duration
		known    bool
	}{
		{"3 Months", Duration3Months, true},
		{"4 Months", Duration4Months, true},
		{"6 Months", Duration6Months, true},
		{"8 Months", Duration8Months, true},
		{"5 Months", DurationUnknown, false},
		{"3 months", DurationUnknown, false}, // labels are case-sensitive
		{"", DurationUnknown, false},
		{"three months", DurationUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			d, ok := ParseDuration(tt.label)
			assert.Equal(t, tt.expected, d)
			assert.Equal(t, tt.known, ok)
		})
	}
}

func TestResolveEndDate(t *testing.T) {
	t.Run("months then extension days", func(t *testing.T) {
		end := ResolveEndDate(timeutil.Date(2024, 1, 15), Duration3Months, 10)
		assert.Equal(t, timeutil.Date(2024, 4, 25), end)
	})

	t.Run("no extension", func(t *testing.T) {
		end := ResolveEndDate(timeutil.Date(2024, 1, 1), Duration3Months, 0)
		assert.Equal(t, timeutil.Date(2024, 4, 1), end)
	})

	t.Run("unknown duration adds zero months", func(t *testing.T) {
		end := ResolveEndDate(timeutil.Date(2024, 1, 15), DurationUnknown, 7)
		assert.Equal(t, timeutil.Date(2024, 1, 22), end)
	})

	t.Run("month arithmetic clamps before days are added", func(t *testing.T) {
		// Jan 31 + 3 months clamps to Apr 30, then +2 days = May 2.
		end := ResolveEndDate(timeutil.Date(2024, 1, 31), Duration3Months, 2)
		assert.Equal(t, timeutil.Date(2024, 5, 2), end)
	})

	t.Run("negative extension treated as zero", func(t *testing.T) {
		end := ResolveEndDate(timeutil.Date(2024, 1, 15), Duration3Months, -5)
		assert.Equal(t, timeutil.Date(2024, 4, 15), end)
	})

	t.Run("eight month internship crosses year boundary", func(t *testing.T) {
		end := ResolveEndDate(timeutil.Date(2024, 9, 10), Duration8Months, 0)
		assert.Equal(t, timeutil.Date(2025, 5, 10), end)
	})
}

func TestDurationString(t *testing.T) {
	assert.Equal(t, "3 Months", Duration3Months.String())
	assert.Equal(t, "Unknown", DurationUnknown.String())
	assert.False(t, DurationUnknown.IsKnown())
	assert.True(t, Duration6Months.IsKnown())
	assert.Equal(t, 6, Duration6Months.Months())
	assert.Equal(t, 0, DurationUnknown.Months())
}
