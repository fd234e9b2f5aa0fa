package constants

// Connection pool constants (spec §4.1)
const (
	DefaultPoolSize = 10
)

// Table / order constants
const (
	// Confirmation codes are random 4-digit numbers (spec §3)
	ConfirmationCodeMin = 1000
	ConfirmationCodeMax = 9999

	// Membership codes are 6-digit numbers (spec §3, glossary)
	MembershipCodeMin = 100000
	MembershipCodeMax = 999999

	// Per-guest price used by the automatic invoice and manual bill (spec §4.3/§4.6)
	PricePerGuestCents = 100

	// Member discount applied when the session owner matches the order owner (spec §4.5)
	MemberDiscountPercent = 10
)

// Validation limits
const (
	MinPasswordLength = 8
	MaxNameLength     = 255
	MaxEmailLength    = 320
)

// Database constraints
const (
	DefaultConnMaxIdle = 10
)

// Wire protocol
const (
	DefaultTCPPort     = 5555
	DefaultAdminPort   = 8090
	EnvelopeLengthSize = 4 // 4-byte big-endian length prefix (SPEC_FULL §6.1+)
	MaxEnvelopeSize    = 4 << 20
)
