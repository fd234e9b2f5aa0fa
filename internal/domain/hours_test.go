package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayOfWeek_SundayIsOne(t *testing.T) {
	// 2026-08-02 is a Sunday.
	sunday := time.Date(2026, time.August, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Sunday, sunday.Weekday())
	assert.Equal(t, 1, DayOfWeek(sunday))

	saturday := sunday.AddDate(0, 0, 6)
	assert.Equal(t, time.Saturday, saturday.Weekday())
	assert.Equal(t, 7, DayOfWeek(saturday))
}

func TestOpeningHours_Covers(t *testing.T) {
	day := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	hours := OpeningHours{
		OpenTime:  time.Date(0, 1, 1, 12, 0, 0, 0, time.UTC),
		CloseTime: time.Date(0, 1, 1, 23, 0, 0, 0, time.UTC),
	}

	assert.True(t, hours.Covers(day.Add(12*time.Hour)))
	assert.True(t, hours.Covers(day.Add(22*time.Hour+59*time.Minute)))
	assert.False(t, hours.Covers(day.Add(11*time.Hour+59*time.Minute)))
	assert.False(t, hours.Covers(day.Add(23*time.Hour)))

	hours.IsClosed = true
	assert.False(t, hours.Covers(day.Add(12*time.Hour)))
}
