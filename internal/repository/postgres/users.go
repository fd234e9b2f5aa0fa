package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	infraauth "bistro-server/internal/infrastructure/auth"
	"bistro-server/internal/domain"
	berrors "bistro-server/pkg/errors"
)

// UserRepository implements spec.md §4.2's Users operations against the
// fixed `users` table (§6.2).
type UserRepository struct {
	*base
	passwords *infraauth.PasswordService
}

const userColumns = `user_id, username, password, first_name, last_name, role, phone, email, member_code, is_logged_in`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var memberCode *int
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.FirstName, &u.LastName,
		&u.Role, &u.Phone, &u.Email, &memberCode, &u.IsLoggedIn)
	if err != nil {
		return domain.User{}, err
	}
	u.MembershipCode = memberCode
	return u, nil
}

// Login verifies credentials against the bcrypt hash and returns the
// matching user. It does not touch the is_logged_in flag — the session
// layer (internal/auth) owns that transition atomically with the
// session-map insert.
func (r *UserRepository) Login(ctx context.Context, username, password string) (domain.User, error) {
	var user domain.User
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
		u, scanErr := scanUser(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrInvalidCredentials
			}
			return wrapDBErr(scanErr)
		}
		if !r.passwords.CheckPasswordHash(password, u.Password) {
			return berrors.ErrInvalidCredentials
		}
		user = u
		return nil
	})
	return user, err
}

// GetByMembershipCode implements identifyByCode (spec.md §4.9): looks up a
// MEMBER by their 6-digit code without touching is_logged_in.
func (r *UserRepository) GetByMembershipCode(ctx context.Context, code int) (domain.User, error) {
	var user domain.User
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE member_code=$1`, code)
		u, scanErr := scanUser(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrUserNotFound
			}
			return wrapDBErr(scanErr)
		}
		user = u
		return nil
	})
	return user, err
}

// GetByID loads a user by identifier, used by authorization checks.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	var user domain.User
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, id)
		u, scanErr := scanUser(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrUserNotFound
			}
			return wrapDBErr(scanErr)
		}
		user = u
		return nil
	})
	return user, err
}

// GetByContact implements RESTORE_CODE's membership-code lookup by phone or
// email (spec.md §4.9+).
func (r *UserRepository) GetByContact(ctx context.Context, phone, email string) (domain.User, error) {
	var user domain.User
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users
			WHERE (phone <> '' AND phone=$1) OR (email <> '' AND email=$2) LIMIT 1`, phone, email)
		u, scanErr := scanUser(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrUserNotFound
			}
			return wrapDBErr(scanErr)
		}
		user = u
		return nil
	})
	return user, err
}

// RegisterMember inserts a staff-registered user (invariant U1: unique
// username). MEMBER registrations are assigned a fresh, unique 6-digit
// membership code by the caller before insert (invariant U2).
func (r *UserRepository) RegisterMember(ctx context.Context, u domain.User) (domain.User, error) {
	hash, err := r.passwords.HashPassword(u.Password)
	if err != nil {
		return domain.User{}, berrors.ErrInvalidInput.Wrap(err)
	}
	u.Password = hash

	err = r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			INSERT INTO users (username, password, first_name, last_name, role, phone, email, member_code, is_logged_in)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,false)
			RETURNING user_id`,
			u.Username, u.Password, u.FirstName, u.LastName, u.Role, u.Phone, u.Email, u.MembershipCode)
		if err := row.Scan(&u.ID); err != nil {
			if isUniqueViolation(err) {
				return berrors.ErrDuplicateUsername
			}
			return wrapDBErr(err)
		}
		return nil
	})
	return u, err
}

// UpdateContact implements UPDATE_USER_INFO: a partial update of the
// contact-ish fields a user may change about themselves.
func (r *UserRepository) UpdateContact(ctx context.Context, id int64, phone, email, firstName, lastName string) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			UPDATE users SET phone=$1, email=$2, first_name=$3, last_name=$4 WHERE user_id=$5`,
			phone, email, firstName, lastName, id)
		return wrapDBErr(err)
	})
}

// SetLoginFlag flips is_logged_in for a user. The caller (internal/auth) is
// responsible for pairing this with the in-memory session-map mutation
// under its own mutex so the two stay consistent (invariant U3).
func (r *UserRepository) SetLoginFlag(ctx context.Context, id int64, value bool) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `UPDATE users SET is_logged_in=$1 WHERE user_id=$2`, value, id)
		return wrapDBErr(err)
	})
}

// ResetAllLoginFlags clears every is_logged_in flag, called once at server
// startup (spec.md §6.3) to erase state left by an unclean shutdown.
func (r *UserRepository) ResetAllLoginFlags(ctx context.Context) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `UPDATE users SET is_logged_in=false WHERE is_logged_in=true`)
		return wrapDBErr(err)
	})
}

func isUniqueViolation(err error) bool {
	// pgconn.PgError carries a SQLSTATE; 23505 is unique_violation.
	type sqlStater interface{ SQLState() string }
	var s sqlStater
	if errors.As(err, &s) {
		return s.SQLState() == "23505"
	}
	return false
}
