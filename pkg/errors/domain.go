package errors

import "net/http"

// Domain-specific errors for the bistro service. Each var maps onto one of
// the error kinds named in the reservation/seating specification:
// ValidationError, NotFound, WrongState, NoResource, Conflict, Unauthorized,
// SystemError.

// Validation errors (opening hours, booking window, guest count, contact)
var (
	ErrOutsideHours = &Error{
		Code:       "OUTSIDE_HOURS",
		Message:    "requested time is outside opening hours",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrTooSoon = &Error{
		Code:       "TOO_SOON",
		Message:    "requested time is less than the minimum booking window away",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrTooFar = &Error{
		Code:       "TOO_FAR",
		Message:    "requested time is beyond the maximum booking window",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingContact = &Error{
		Code:       "MISSING_CONTACT",
		Message:    "order requires a phone or email contact",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidInput = &Error{
		Code:       "INVALID_INPUT",
		Message:    "invalid input provided",
		HTTPStatus: http.StatusBadRequest,
	}
)

// NotFound errors
var (
	ErrOrderNotFound = &Error{
		Code:       "ORDER_NOT_FOUND",
		Message:    "order not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUserNotFound = &Error{
		Code:       "USER_NOT_FOUND",
		Message:    "user not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrTableNotFound = &Error{
		Code:       "TABLE_NOT_FOUND",
		Message:    "table not found",
		HTTPStatus: http.StatusNotFound,
	}
)

// WrongState errors (state-machine violations)
var (
	ErrWrongState = &Error{
		Code:       "WRONG_STATE",
		Message:    "order is not in a state that allows this operation",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrOutsideWindow = &Error{
		Code:       "OUTSIDE_WINDOW",
		Message:    "arrival is outside the tolerance window of the scheduled time",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrNotLeavable = &Error{
		Code:       "NOT_LEAVABLE",
		Message:    "order is not in a waitlist-eligible state",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
)

// NoResource errors
var (
	ErrNoFreeTable = &Error{
		Code:       "NO_FREE_TABLE",
		Message:    "no table is currently available for this party size",
		HTTPStatus: http.StatusConflict,
	}

	ErrNoTables = &Error{
		Code:       "NO_TABLES",
		Message:    "no table exists with sufficient capacity for this party size",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
)

// Conflict errors
var (
	ErrAlreadyOnline = &Error{
		Code:       "ALREADY_ONLINE",
		Message:    "user already has an active session",
		HTTPStatus: http.StatusConflict,
	}

	ErrAlreadyActive = &Error{
		Code:       "ALREADY_ACTIVE",
		Message:    "contact already has an active order today",
		HTTPStatus: http.StatusConflict,
	}

	ErrDuplicateUsername = &Error{
		Code:       "DUPLICATE_USERNAME",
		Message:    "username is already taken",
		HTTPStatus: http.StatusConflict,
	}

	ErrDuplicateTable = &Error{
		Code:       "DUPLICATE_TABLE",
		Message:    "a table with this id already exists",
		HTTPStatus: http.StatusConflict,
	}

	ErrDuplicateCode = &Error{
		Code:       "DUPLICATE_CODE",
		Message:    "confirmation code collides with an active order",
		HTTPStatus: http.StatusConflict,
	}

	ErrTableOccupied = &Error{
		Code:       "TABLE_OCCUPIED",
		Message:    "table must be available for this operation",
		HTTPStatus: http.StatusConflict,
	}
)

// Unauthorized errors
var (
	ErrUnauthorized = &Error{
		Code:       "UNAUTHORIZED",
		Message:    "authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &Error{
		Code:       "FORBIDDEN",
		Message:    "caller is not permitted to perform this operation",
		HTTPStatus: http.StatusForbidden,
	}

	ErrInvalidCredentials = &Error{
		Code:       "INVALID_CREDENTIALS",
		Message:    "invalid username or password",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidToken = &Error{
		Code:       "INVALID_TOKEN",
		Message:    "invalid or expired token",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// SystemError errors
var (
	ErrPoolExhausted = &Error{
		Code:       "POOL_EXHAUSTED",
		Message:    "connection pool could not supply a handle",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrDatabase = &Error{
		Code:       "DATABASE_ERROR",
		Message:    "database operation failed",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrInternal = &Error{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
)
