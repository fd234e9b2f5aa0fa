package domain

import "time"

// OrderStatus is one of the states in spec.md §4.3's state machine.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusWaiting   OrderStatus = "WAITING"
	StatusNotified  OrderStatus = "NOTIFIED"
	StatusSeated    OrderStatus = "SEATED"
	StatusBilled    OrderStatus = "BILLED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusNoShow    OrderStatus = "NO_SHOW"
)

// ActiveStatuses is the glossary's "active states" set — orders counted by
// invariant O1 (confirmation-code uniqueness) and by most queries that mean
// "not yet finished".
var ActiveStatuses = []OrderStatus{StatusPending, StatusWaiting, StatusNotified, StatusSeated, StatusBilled}

// TerminalStatuses never transition further (invariant O4 / P4).
var TerminalStatuses = []OrderStatus{StatusCompleted, StatusCancelled, StatusNoShow}

// IsActive reports whether s is one of the active states.
func (s OrderStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is a terminal state (invariant O4).
func (s OrderStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if t == s {
			return true
		}
	}
	return false
}

// Contact carries the identifying information of a guest (non-member) order
// owner, used by the ownership check in spec.md §4.9.
type Contact struct {
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	CustomerName string `json:"customerName"`
}

// Order is spec.md §3's Order entity.
type Order struct {
	ID                 int64       `json:"id"`
	ScheduledTime       time.Time   `json:"scheduledTime"`
	Guests              int         `json:"guests"`
	ConfirmationCode    int         `json:"confirmationCode"`
	MemberID            int64       `json:"memberId"` // 0 for guest
	Status              OrderStatus `json:"status"`
	TotalPrice          *int64      `json:"totalPrice,omitempty"` // cents
	AssignedTable       *int64      `json:"assignedTable,omitempty"`
	Contact             Contact     `json:"contact"`
	PlacedTime          time.Time   `json:"placedTime"`
	ActualArrivalTime   *time.Time  `json:"actualArrivalTime,omitempty"`
	ActualLeaveTime     *time.Time  `json:"actualLeaveTime,omitempty"`
	EnteredWaitlist     bool        `json:"enteredWaitlist"`
}

// IsGuest reports whether the order was placed without a member account.
func (o Order) IsGuest() bool {
	return o.MemberID == 0
}

// transitions enumerates the legal (from, event) -> to moves of spec.md
// §4.3's table. It is consulted only for documentation/validation purposes;
// each component (reservation engine, seating controller, scheduler) drives
// its own transitions directly since the "event" names aren't wire values,
// but CanTransition lets tests assert the table mechanically.
var transitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusSeated:    true, // arrival within window
		StatusNoShow:    true, // late > 15 min
		StatusCancelled: true, // manual cancel, or opening-hours change
	},
	StatusNotified: {
		StatusSeated:    true,
		StatusNoShow:    true,
		StatusCancelled: true,
	},
	StatusWaiting: {
		StatusNotified:  true, // predecessor table freed and fits
		StatusCancelled: true, // late > 15 min, or manual cancel
	},
	StatusSeated: {
		StatusBilled:    true, // manual complete or scheduler T+2h
		StatusCompleted: true, // payment
	},
	StatusBilled: {
		StatusCompleted: true, // payment
	},
}

// CanTransition reports whether moving an order from "from" to "to" is a
// legal move in spec.md §4.3's state machine. Terminal states never permit
// a further transition (invariant O4 / property P4).
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}
