package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"bistro-server/internal/domain"
	"bistro-server/internal/repository/postgres"
	berrors "bistro-server/pkg/errors"
)

// Manager implements spec.md §4.9's login/logout/identify flows and
// authorization rules. The session map is guarded by a single mutex, all
// reads and writes go through it (spec.md §5's shared-state discipline).
type Manager struct {
	users *postgres.UserRepository
	qr    *QRSigner

	mu       sync.Mutex
	byUser   map[int64]domain.ConnectionHandle
	byHandle map[domain.ConnectionHandle]int64

	logger *zap.Logger
}

// New builds a session Manager. Call ResetAllLoginFlags once at startup
// per spec.md §6.3 before accepting connections.
func New(users *postgres.UserRepository, qr *QRSigner, logger *zap.Logger) *Manager {
	return &Manager{
		users:    users,
		qr:       qr,
		byUser:   make(map[int64]domain.ConnectionHandle),
		byHandle: make(map[domain.ConnectionHandle]int64),
		logger:   logger,
	}
}

// ResetAllLoginFlags clears is_logged_in state left by an unclean shutdown
// (spec.md §6.3's startup sequence). Call before the session map is used.
func (m *Manager) ResetAllLoginFlags(ctx context.Context) error {
	return m.users.ResetAllLoginFlags(ctx)
}

// Login verifies credentials, rejects a user already online, then binds
// handle to the user-id atomically with the is_logged_in flag (invariant
// U3). Reusing a handle for a second login replaces its prior binding only
// if that handle isn't already bound — the dispatcher must Logout before a
// fresh Login on the same connection.
func (m *Manager) Login(ctx context.Context, handle domain.ConnectionHandle, username, password string) (domain.User, error) {
	user, err := m.users.Login(ctx, username, password)
	if err != nil {
		return domain.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, alreadyOnline := m.byUser[user.ID]
	_, handleBound := m.byHandle[handle]
	if alreadyOnline || handleBound || user.IsLoggedIn {
		return domain.User{}, berrors.ErrAlreadyOnline
	}

	if err := m.users.SetLoginFlag(ctx, user.ID, true); err != nil {
		return domain.User{}, err
	}

	m.byUser[user.ID] = handle
	m.byHandle[handle] = user.ID

	user.IsLoggedIn = true
	return user, nil
}

// Logout clears the flag and the map entry for handle. A no-op (not an
// error) if handle was never logged in — the dispatcher's read-loop exit
// path calls this unconditionally on disconnect (spec.md §4.9).
func (m *Manager) Logout(ctx context.Context, handle domain.ConnectionHandle) error {
	m.mu.Lock()
	userID, ok := m.byHandle[handle]
	if ok {
		delete(m.byHandle, handle)
		delete(m.byUser, userID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return m.users.SetLoginFlag(ctx, userID, false)
}

// IdentifyByQR implements identifyByCode for the signed-JWT form of
// SPEC_FULL.md §4.9+: verifies the token and returns the matching MEMBER.
// No login-flag change — used only to bind a physical terminal session.
func (m *Manager) IdentifyByQR(ctx context.Context, token string) (domain.User, error) {
	code, err := m.qr.Verify(token)
	if err != nil {
		return domain.User{}, err
	}
	return m.users.GetByMembershipCode(ctx, code)
}

// IdentifyByCode implements the back-compatible bare-integer form of
// identifyByCode (spec.md §4.9).
func (m *Manager) IdentifyByCode(ctx context.Context, code int) (domain.User, error) {
	return m.users.GetByMembershipCode(ctx, code)
}

// IssueQR signs a fresh QR token for a member's code. No dispatcher handler
// calls it: REGISTER_CLIENT replies with the user record only.
func (m *Manager) IssueQR(membershipCode int) (string, error) {
	return m.qr.Sign(membershipCode)
}

// UserForHandle returns the user-id bound to a connection handle, or
// (0, false) if the handle has no active session.
func (m *Manager) UserForHandle(handle domain.ConnectionHandle) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHandle[handle]
	return id, ok
}

// RequireStaff implements spec.md §4.9's staff-only authorization rule:
// requester role must be WORKER or MANAGER.
func RequireStaff(caller domain.User) error {
	if !caller.IsStaff() {
		return berrors.ErrForbidden
	}
	return nil
}

// RequireManager implements spec.md §4.9's MANAGER-only rule (reports,
// all-members list).
func RequireManager(caller domain.User) error {
	if !caller.IsManager() {
		return berrors.ErrForbidden
	}
	return nil
}

// RequireOwnerOrContact implements spec.md §4.9's ownership rule for
// cancel/pay/leave-waitlist: a MEMBER order may only be acted on by that
// member; a guest order requires the caller to present a matching phone or
// email. Staff bypass this check at the dispatcher layer before calling in.
func RequireOwnerOrContact(order domain.Order, callerUserID int64, contactPhone, contactEmail string) error {
	if !order.IsGuest() {
		if order.MemberID != callerUserID {
			return berrors.ErrForbidden
		}
		return nil
	}
	if contactPhone != "" && contactPhone == order.Contact.Phone {
		return nil
	}
	if contactEmail != "" && contactEmail == order.Contact.Email {
		return nil
	}
	return berrors.ErrForbidden
}
