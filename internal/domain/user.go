// Package domain holds the entities and value types of the bistro system
// (spec.md §3): User, Table, Order, OpeningHours, and the in-memory Session
// mapping. Types here carry no persistence or transport concerns — those
// live in internal/repository and internal/protocol respectively.
package domain

// Role identifies what a User is permitted to do (spec.md §4.9).
type Role string

const (
	RoleGuest   Role = "GUEST"
	RoleMember  Role = "MEMBER"
	RoleWorker  Role = "WORKER"
	RoleManager Role = "MANAGER"
)

// User is spec.md §3's User entity. MembershipCode is only meaningful for
// MEMBER (invariant U2); IsLoggedIn is toggled exclusively by the session
// layer (invariant U3), never written directly by a repository caller.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Password       string `json:"-"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Role           Role   `json:"role"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	MembershipCode *int   `json:"membershipCode,omitempty"`
	IsLoggedIn     bool   `json:"isLoggedIn"`
}

// IsStaff reports whether the user may perform WORKER/MANAGER-only
// operations (table CRUD, opening-hours mutation, reports, member lists).
func (u User) IsStaff() bool {
	return u.Role == RoleWorker || u.Role == RoleManager
}

// IsManager reports whether the user may perform MANAGER-only operations
// (reports, all-members list) per spec.md §4.9.
func (u User) IsManager() bool {
	return u.Role == RoleManager
}
