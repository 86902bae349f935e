package intern

import (
	"time"

	"github.com/internhub/internship-back-office/pkg/timeutil"
)

// Duration is the closed enumeration of internship durations. The admin UI
// historically stored these as free text, so parsing is lenient: anything
// outside the fixed label set maps to DurationUnknown, which adds zero
// months. Callers that care (the sweeper does) log a warning when they see
// an unknown duration rather than failing the record.
type Duration int

const (
	// DurationUnknown is the explicit "label did not match" variant.
	// It resolves to zero added months.
	DurationUnknown Duration = 0

	// Duration3Months is a three month internship.
	Duration3Months Duration = 3

	// Duration4Months is a four month internship.
	Duration4Months Duration = 4

	// Duration6Months is a six month internship.
	Duration6Months Duration = 6

	// Duration8Months is an eight month internship.
	Duration8Months Duration = 8
)

// durationLabels is the fixed label lookup used by the admin forms.
var durationLabels = map[string]Duration{
	"3 Months": Duration3Months,
	"4 Months": Duration4Months,
	"6 Months": Duration6Months,
	"8 Months": Duration8Months,
}

// ParseDuration maps a stored duration label to its enum value.
// The second return value reports whether the label was recognized.
func ParseDuration(label string) (Duration, bool) {
	d, ok := durationLabels[label]
	if !ok {
		return DurationUnknown, false
	}
	return d, true
}

// Months returns the number of whole calendar months the duration adds.
func (d Duration) Months() int {
	return int(d)
}

// IsKnown reports whether the duration matched one of the fixed labels.
func (d Duration) IsKnown() bool {
	return d != DurationUnknown
}

// String returns the canonical label for the duration.
func (d Duration) String() string {
	switch d {
	case Duration3Months:
		return "3 Months"
	case Duration4Months:
		return "4 Months"
	case Duration6Months:
		return "6 Months"
	case Duration8Months:
		return "8 Months"
	default:
		return "Unknown"
	}
}

// ResolveEndDate derives the internship end date from the joining date,
// the duration, and the accumulated extension days. Pure, total,
// deterministic: whole calendar months are added first (clamped to the
// last valid day of the target month), then extension days. Negative
// extension days are treated as zero; ExtendedDays never goes negative in
// the domain, so this only guards against bad rows.
func ResolveEndDate(joiningDate time.Time, d Duration, extendedDays int) time.Time {
	if extendedDays < 0 {
		extendedDays = 0
	}

	end := timeutil.AddMonthsClamped(joiningDate, d.Months())
	return timeutil.AddDays(end, extendedDays)
}
