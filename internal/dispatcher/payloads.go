package dispatcher

import "bistro-server/internal/domain"

// loginRequest is LOGIN's request payload (spec.md §6.1).
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerClientRequest is REGISTER_CLIENT's request payload: a draft user
// record, assigned a fresh membership code server-side when Role is MEMBER.
type registerClientRequest struct {
	Username  string      `json:"username"`
	Password  string      `json:"password"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role"`
	Phone     string      `json:"phone"`
	Email     string      `json:"email"`
}

// identifyRequest is IDENTIFY_BY_QR's request payload: a signed QR token or
// a bare membership-code string, tried in that order.
type identifyRequest struct {
	Code string `json:"code"`
}

// userIDRequest carries a user-id, used by GET_USER_HISTORY.
type userIDRequest struct {
	UserID int64 `json:"userId"`
}

// updateUserInfoRequest is UPDATE_USER_INFO's partial-update payload.
type updateUserInfoRequest struct {
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// codeRequest carries a confirmation code, shared by GET_ORDER_BY_CODE,
// CANCEL_ORDER, LEAVE_WAITLIST, VALIDATE_ARRIVAL, PAY_BILL. ContactPhone/
// ContactEmail are optional and only consulted for CANCEL_ORDER/
// LEAVE_WAITLIST when a non-staff caller, with or without a session, acts
// on a guest order (spec.md §4.9's guest-order ownership check).
type codeRequest struct {
	ConfirmationCode int    `json:"confirmationCode"`
	ContactPhone     string `json:"contactPhone,omitempty"`
	ContactEmail     string `json:"contactEmail,omitempty"`
}

// availableTimesRequest is GET_AVAILABLE_TIMES's request payload.
type availableTimesRequest struct {
	Date   string `json:"date"` // RFC3339 calendar day
	Guests int    `json:"guests"`
}

// orderDraftRequest is the shared shape of CREATE_ORDER and ENTER_WAITLIST
// request payloads: a not-yet-persisted order.
type orderDraftRequest struct {
	ScheduledTime string         `json:"scheduledTime"` // RFC3339, CREATE_ORDER only
	Guests        int            `json:"guests"`
	MemberID      int64          `json:"memberId"`
	Contact       domain.Contact `json:"contact"`
}

// updateOrderStatusRequest is UPDATE_ORDER_STATUS's request payload.
type updateOrderStatusRequest struct {
	OrderID int64              `json:"orderId"`
	Status  domain.OrderStatus `json:"status"`
}

// openingHoursRequest is UPDATE_OPENING_HOURS's request payload, mirroring
// domain.OpeningHours with string-encoded times for wire transport.
type openingHoursRequest struct {
	DayOfWeek    *int    `json:"dayOfWeek,omitempty"`
	SpecificDate *string `json:"specificDate,omitempty"`
	OpenTime     string  `json:"openTime"`
	CloseTime    string  `json:"closeTime"`
	IsClosed     bool    `json:"isClosed"`
}

// tableRequest covers ADD_TABLE/REMOVE_TABLE/UPDATE_TABLE's request payload.
type tableRequest struct {
	ID       int64 `json:"id"`
	Capacity int   `json:"capacity"`
}

// reportRequest is the shared request payload of GET_PERFORMANCE_REPORT and
// GET_SUBSCRIPTION_REPORT.
type reportRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// restoreCodeRequest is RESTORE_CODE's request payload: either a contact
// pair (looked up against orders, then users) or a bare membership code.
type restoreCodeRequest struct {
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	MembershipCode *int   `json:"membershipCode,omitempty"`
}

// logoutRequest is LOGOUT's request payload; UserID is optional since the
// session is keyed by connection handle, not by the payload.
type logoutRequest struct {
	UserID int64 `json:"userId"`
}

// ok is the literal "OK" success payload the contract uses for several tags.
const ok = "OK"
