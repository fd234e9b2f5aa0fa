package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"bistro-server/internal/domain"
	berrors "bistro-server/pkg/errors"
)

// TableRepository implements spec.md §4.2's Tables operations and §4.8's
// administrative mutations against the fixed `tables` table (§6.2).
type TableRepository struct {
	*base
}

func scanTable(row pgx.Row) (domain.Table, error) {
	var t domain.Table
	err := row.Scan(&t.ID, &t.Capacity, &t.Status)
	return t, err
}

// List returns every table, ascending by identifier.
func (r *TableRepository) List(ctx context.Context) ([]domain.Table, error) {
	var tables []domain.Table
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT table_id, capacity, status FROM tables ORDER BY table_id`)
		if err != nil {
			return wrapDBErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			t, scanErr := scanTable(rows)
			if scanErr != nil {
				return wrapDBErr(scanErr)
			}
			tables = append(tables, t)
		}
		return wrapDBErr(rows.Err())
	})
	return tables, err
}

// ListAvailableAscendingCapacity supports the arrival/walk-in path's
// "smallest AVAILABLE table whose capacity fits" scan (spec.md §4.5).
func (r *TableRepository) ListAvailableAscendingCapacity(ctx context.Context) ([]domain.Table, error) {
	var tables []domain.Table
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT table_id, capacity, status FROM tables
			WHERE status='AVAILABLE' ORDER BY capacity ASC, table_id ASC`)
		if err != nil {
			return wrapDBErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			t, scanErr := scanTable(rows)
			if scanErr != nil {
				return wrapDBErr(scanErr)
			}
			tables = append(tables, t)
		}
		return wrapDBErr(rows.Err())
	})
	return tables, err
}

// Add requires table-id not yet in use (spec.md §4.8).
func (r *TableRepository) Add(ctx context.Context, t domain.Table) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `INSERT INTO tables (table_id, capacity, status) VALUES ($1,$2,'AVAILABLE')`, t.ID, t.Capacity)
		if isUniqueViolation(err) {
			return berrors.ErrDuplicateTable
		}
		return wrapDBErr(err)
	})
}

// UpdateCapacity is allowed only when the table is AVAILABLE (spec.md §4.8).
func (r *TableRepository) UpdateCapacity(ctx context.Context, id int64, capacity int) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `UPDATE tables SET capacity=$1 WHERE table_id=$2 AND status='AVAILABLE'`, capacity, id)
		if err != nil {
			return wrapDBErr(err)
		}
		if tag.RowsAffected() == 0 {
			return berrors.ErrTableOccupied
		}
		return nil
	})
}

// DeleteSafely is allowed only when the table is AVAILABLE (spec.md §4.8).
func (r *TableRepository) DeleteSafely(ctx context.Context, id int64) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM tables WHERE table_id=$1 AND status='AVAILABLE'`, id)
		if err != nil {
			return wrapDBErr(err)
		}
		if tag.RowsAffected() == 0 {
			return berrors.ErrTableOccupied
		}
		return nil
	})
}

// GetCapacity returns a single table's capacity, used by feasibility
// recomputation after §4.8 mutations.
func (r *TableRepository) GetCapacity(ctx context.Context, id int64) (int, error) {
	var capacity int
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT capacity FROM tables WHERE table_id=$1`, id)
		scanErr := row.Scan(&capacity)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrTableNotFound
			}
			return wrapDBErr(scanErr)
		}
		return nil
	})
	return capacity, err
}

// TryOccupy performs the conditional update variant of §5's atomicity
// requirement: "SET status='OCCUPIED' WHERE id=? AND status='AVAILABLE'".
// Zero rows affected means another handler already claimed the table; the
// caller must retry the whole assignment against a different candidate.
func (r *TableRepository) TryOccupy(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `UPDATE tables SET status='OCCUPIED' WHERE table_id=$1 AND status='AVAILABLE'`, id)
		if execErr != nil {
			return wrapDBErr(execErr)
		}
		ok = tag.RowsAffected() > 0
		return nil
	})
	return ok, err
}

// Free resets a table to AVAILABLE, used whenever an order holding it
// reaches a terminal/freeing transition.
func (r *TableRepository) Free(ctx context.Context, id int64) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `UPDATE tables SET status='AVAILABLE' WHERE table_id=$1`, id)
		return wrapDBErr(err)
	})
}
