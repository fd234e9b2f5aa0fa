// Package postgres implements spec.md §4.2's repositories against the fixed
// schema of §6.2 (`users`, `tables`, `order`, `opening_hours`). Every method
// acquires a handle from internal/pool, executes one logical operation, and
// releases the handle — no repository method holds a handle past its own
// return, and no cross-repository transactions exist except where the spec
// calls one out explicitly (the arrival/promotion conditional updates).
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	infraauth "bistro-server/internal/infrastructure/auth"
	"bistro-server/internal/pool"
	berrors "bistro-server/pkg/errors"
)

// Repositories bundles the four repositories behind one connection pool, as
// the rest of the system (reservation engine, seating controller,
// scheduler) only ever needs one handle to each.
type Repositories struct {
	Orders *OrderRepository
	Tables *TableRepository
	Users  *UserRepository
	Hours  *HoursRepository
}

// New wires every repository to the shared pool.
func New(p *pool.Pool, logger *zap.Logger) *Repositories {
	base := &base{pool: p, logger: logger}
	return &Repositories{
		Orders: &OrderRepository{base: base},
		Tables: &TableRepository{base: base},
		Users:  &UserRepository{base: base, passwords: infraauth.NewPasswordService()},
		Hours:  &HoursRepository{base: base},
	}
}

// base is embedded by each repository to share the acquire/release
// boilerplate and a uniform way to turn pgx errors into pkg/errors.
type base struct {
	pool   *pool.Pool
	logger *zap.Logger
}

// withConn acquires a handle, runs fn, and always releases the handle
// afterward — regardless of whether fn returned an error.
func (b *base) withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer b.pool.Release(ctx, conn)
	return fn(conn)
}

// wrapDBErr converts a low-level driver error into a SystemError domain
// error, leaving pgx.ErrNoRows for callers to check explicitly (it usually
// means NotFound, which differs per call site).
func wrapDBErr(err error) error {
	if err == nil {
		return nil
	}
	return berrors.ErrDatabase.Wrap(err)
}
