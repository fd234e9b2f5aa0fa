package domain

import "time"

// OpeningHours is spec.md §3's OpeningHours entity. A row either names a
// DayOfWeek (1–7) or a SpecificDate; SPEC_FULL.md §9 pins the convention
// Sunday=1 … Saturday=7 (time.Weekday + 1), resolving spec.md §9's
// documented day-of-week ambiguity.
type OpeningHours struct {
	ID           int64      `json:"id"`
	DayOfWeek    *int       `json:"dayOfWeek,omitempty"`
	SpecificDate *time.Time `json:"specificDate,omitempty"`
	OpenTime     time.Time  `json:"openTime"`  // time-of-day, seconds precision
	CloseTime    time.Time  `json:"closeTime"` // time-of-day, seconds precision
	IsClosed     bool       `json:"isClosed"`
}

// DayOfWeek converts a Go time.Weekday into the Sunday=1..Saturday=7
// convention this implementation pins (SPEC_FULL.md §9).
func DayOfWeek(t time.Time) int {
	return int(t.Weekday()) + 1
}

// TimeOfDay projects a clock time (hour/min/sec) onto date, for comparing
// OpeningHours.OpenTime/CloseTime (which are stored with an arbitrary date
// component) against a real timestamp's time-of-day.
func TimeOfDay(date time.Time, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, date.Location())
}

// Covers reports whether the clock time `at` falls within [open, close) of
// this rule, for the same calendar date. A closed rule never covers any
// time.
func (h OpeningHours) Covers(at time.Time) bool {
	if h.IsClosed {
		return false
	}
	open := TimeOfDay(at, h.OpenTime)
	closeT := TimeOfDay(at, h.CloseTime)
	return !at.Before(open) && at.Before(closeT)
}

// SameCalendarDay reports whether a and b fall on the same calendar date
// (ignoring time-of-day), used to match SpecificDate rules.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
