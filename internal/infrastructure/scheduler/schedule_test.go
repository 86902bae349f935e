package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule_Next(t *testing.T) {
	s := Every(30 * time.Minute)
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, base.Add(30*time.Minute), s.Next(base))
	assert.Equal(t, "every 30m0s", s.String())
}

func TestIntervalSchedule_ZeroIntervalNeverRuns(t *testing.T) {
	s := Every(0)
	assert.True(t, s.Next(time.Now()).IsZero())
}

func TestDailySchedule_NextSameDay(t *testing.T) {
	s := DailyAt(2, 30)
	base := time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 6, 1, 2, 30, 0, 0, time.UTC), s.Next(base))
}

func TestDailySchedule_NextRollsToTomorrow(t *testing.T) {
	s := DailyAt(2, 30)

	// Exactly at the scheduled time rolls to the next day.
	at := time.Date(2024, 6, 1, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 2, 2, 30, 0, 0, time.UTC), s.Next(at))

	after := time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 2, 2, 30, 0, 0, time.UTC), s.Next(after))
}
