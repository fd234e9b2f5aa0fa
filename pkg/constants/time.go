// Package constants provides centralized constants for the application.
// This helps avoid magic numbers and provides clear semantic meaning
// for time-related values used throughout the codebase.
package constants

import "time"

// Time conversion constants for better readability
const (
	// Seconds
	SecondsPerMinute = 60
	SecondsPerHour   = 3600
	SecondsPerDay    = 86400

	// Minutes
	MinutesPerHour = 60
	MinutesPerDay  = 1440
)

// Duration constants using Go's time.Duration
const (
	// Token expiration durations
	DefaultAccessTokenDuration = 24 * time.Hour

	// Reservation engine (spec §4.4)
	MinBookingLead  = 60 * time.Minute
	MaxBookingAhead = 31 * 24 * time.Hour
	OverlapWindow   = 120 * time.Minute
	SlotBucket      = 30 * time.Minute
	SlotCloseBuffer = 60 * time.Minute

	// Seating controller (spec §4.5)
	ArrivalTolerance = 20 * time.Minute

	// Scheduler (spec §4.6)
	SchedulerWarmup        = 5 * time.Second
	SchedulerTickInterval  = 10 * time.Second
	LateCancellationAfter  = 15 * time.Minute
	ReminderWindowMin      = 115 * time.Minute
	ReminderWindowMax      = 125 * time.Minute
	AutomaticInvoiceAfter  = 120 * time.Minute

	// Connection pool (spec §4.1)
	PoolEvictorInterval = 2 * time.Second
	PoolIdleThreshold   = 5 * time.Second

	// Hours cache (SPEC_FULL §4.4+)
	HoursCacheL1TTL = 60 * time.Second
	HoursCacheL2TTL = 5 * time.Minute

	// API timeouts
	DefaultHTTPTimeout = 30 * time.Second
	DatabaseTimeout    = 10 * time.Second
)
