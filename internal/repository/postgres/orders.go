package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"bistro-server/internal/domain"
	"bistro-server/pkg/constants"
	berrors "bistro-server/pkg/errors"
)

// OrderRepository implements spec.md §4.2's Order operations against the
// fixed `order` table (§6.2 — note the table name is singular).
type OrderRepository struct {
	*base
}

const orderColumns = `order_number, order_date, number_of_guests, confirmation_code, subscriber_id,
	date_of_placing_order, status, total_price, phone, email, customer_name,
	entered_waitlist, actual_arrival_time, actual_leave_time, assigned_table_id`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var subscriberID *int64
	err := row.Scan(&o.ID, &o.ScheduledTime, &o.Guests, &o.ConfirmationCode, &subscriberID,
		&o.PlacedTime, &o.Status, &o.TotalPrice, &o.Contact.Phone, &o.Contact.Email, &o.Contact.CustomerName,
		&o.EnteredWaitlist, &o.ActualArrivalTime, &o.ActualLeaveTime, &o.AssignedTable)
	if err != nil {
		return domain.Order{}, err
	}
	if subscriberID != nil {
		o.MemberID = *subscriberID
	}
	return o, nil
}

// Create inserts a new order row. Invariant O1 (confirmation-code
// uniqueness among active orders) is the caller's responsibility: the
// reservation engine / seating controller must generate a code and retry
// on a unique-violation before calling Create.
func (r *OrderRepository) Create(ctx context.Context, o domain.Order) (domain.Order, error) {
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		var subscriberID *int64
		if o.MemberID != 0 {
			subscriberID = &o.MemberID
		}
		row := conn.QueryRow(ctx, `
			INSERT INTO "order" (order_date, number_of_guests, confirmation_code, subscriber_id,
				date_of_placing_order, status, total_price, phone, email, customer_name,
				entered_waitlist, actual_arrival_time, actual_leave_time, assigned_table_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING order_number`,
			o.ScheduledTime, o.Guests, o.ConfirmationCode, subscriberID,
			o.PlacedTime, o.Status, o.TotalPrice, o.Contact.Phone, o.Contact.Email, o.Contact.CustomerName,
			o.EnteredWaitlist, o.ActualArrivalTime, o.ActualLeaveTime, o.AssignedTable)
		if scanErr := row.Scan(&o.ID); scanErr != nil {
			if isUniqueViolation(scanErr) {
				return berrors.ErrDuplicateCode
			}
			return wrapDBErr(scanErr)
		}
		return nil
	})
	return o, err
}

// GetByID loads a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (domain.Order, error) {
	var order domain.Order
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM "order" WHERE order_number=$1`, id)
		o, scanErr := scanOrder(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrOrderNotFound
			}
			return wrapDBErr(scanErr)
		}
		order = o
		return nil
	})
	return order, err
}

// GetByActiveCode implements GET_ORDER_BY_CODE / arrival-by-code lookups:
// the confirmation-code is only guaranteed unique among active orders
// (invariant O1), so the status filter is load-bearing here.
func (r *OrderRepository) GetByActiveCode(ctx context.Context, code int) (domain.Order, error) {
	var order domain.Order
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM "order"
			WHERE confirmation_code=$1 AND status = ANY($2)`, code, activeStatusStrings())
		o, scanErr := scanOrder(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrOrderNotFound
			}
			return wrapDBErr(scanErr)
		}
		order = o
		return nil
	})
	return order, err
}

// HasActiveOrderToday backs the duplicate-active-order rejection in
// spec.md §4.5's walk-in path.
func (r *OrderRepository) HasActiveOrderToday(ctx context.Context, phone, email string, today time.Time) (bool, error) {
	var exists bool
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM "order"
				WHERE status = ANY($1)
				AND order_date::date = $2::date
				AND ((phone <> '' AND phone=$3) OR (email <> '' AND email=$4))
			)`, activeStatusStrings(), today, phone, email)
		return wrapDBErr(row.Scan(&exists))
	})
	return exists, err
}

// GetActiveByContact implements RESTORE_CODE's confirmation-code lookup by
// phone or email among a caller's active orders (spec.md §4.9+).
func (r *OrderRepository) GetActiveByContact(ctx context.Context, phone, email string) (domain.Order, error) {
	var order domain.Order
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM "order"
			WHERE status = ANY($1) AND ((phone <> '' AND phone=$2) OR (email <> '' AND email=$3))
			ORDER BY order_date DESC LIMIT 1`, activeStatusStrings(), phone, email)
		o, scanErr := scanOrder(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrOrderNotFound
			}
			return wrapDBErr(scanErr)
		}
		order = o
		return nil
	})
	return order, err
}

// GetOverlappingActive returns every active order whose scheduled-time
// falls within the ±120-minute overlap window of t (spec.md §4.4's
// best-fit feasibility input), excluding order excludeID if non-zero (used
// when re-testing the candidate order itself).
func (r *OrderRepository) GetOverlappingActive(ctx context.Context, t time.Time, excludeID int64) ([]domain.Order, error) {
	lo := t.Add(-constants.OverlapWindow)
	hi := t.Add(constants.OverlapWindow)
	var orders []domain.Order
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+orderColumns+` FROM "order"
			WHERE status = ANY($1) AND order_date BETWEEN $2 AND $3 AND order_number <> $4
			ORDER BY number_of_guests DESC`, activeStatusStrings(), lo, hi, excludeID)
		if err != nil {
			return wrapDBErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			o, scanErr := scanOrder(rows)
			if scanErr != nil {
				return wrapDBErr(scanErr)
			}
			orders = append(orders, o)
		}
		return wrapDBErr(rows.Err())
	})
	return orders, err
}

// UpdateStatus advances an order's status. It refuses to mutate a
// terminal-state row (invariant O4 / property P4).
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE "order" SET status=$1
			WHERE order_number=$2 AND status <> ALL($3)`,
			status, id, terminalStatusStrings())
		if err != nil {
			return wrapDBErr(err)
		}
		if tag.RowsAffected() == 0 {
			return berrors.ErrWrongState
		}
		return nil
	})
}

// SetScheduledTime resets scheduled-time, used by the WAITING→NOTIFIED
// promotion's "reset 15-min timer" side effect (spec.md §4.3/§4.5).
func (r *OrderRepository) SetScheduledTime(ctx context.Context, id int64, t time.Time) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `UPDATE "order" SET order_date=$1 WHERE order_number=$2`, t, id)
		return wrapDBErr(err)
	})
}

// AssignTableAndSeat sets status=SEATED, assigned-table, and
// actual-arrival-time in one statement, the order-row half of the
// conditional-update pairing described in spec.md §5. The table-row half
// (TableRepository.TryOccupy) must have already succeeded before this is
// called.
func (r *OrderRepository) AssignTableAndSeat(ctx context.Context, id, tableID int64, arrival time.Time) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE "order" SET status='SEATED', assigned_table_id=$1, actual_arrival_time=$2
			WHERE order_number=$3 AND status = ANY($4)`,
			tableID, arrival, id, []string{string(domain.StatusPending), string(domain.StatusNotified)})
		if err != nil {
			return wrapDBErr(err)
		}
		if tag.RowsAffected() == 0 {
			return berrors.ErrWrongState
		}
		return nil
	})
}

// CompleteOrder implements processPayment's atomic commit (spec.md §4.5):
// set COMPLETED, clear assigned-table, set actual-leave-time, and free the
// table row — all inside one transaction so no observer sees an
// intermediate state. Returns the freed table id (for waitlist promotion).
func (r *OrderRepository) CompleteOrder(ctx context.Context, id int64, finalPriceCents int64, now time.Time) (*int64, error) {
	var freedTable *int64
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return wrapDBErr(err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		var tableID *int64

		// Lock and read the held table before clearing it, since an UPDATE
		// ... RETURNING would reflect the post-update (already-NULL) value.
		var preTableID *int64
		if scanErr := tx.QueryRow(ctx, `SELECT assigned_table_id FROM "order" WHERE order_number=$1 FOR UPDATE`, id).Scan(&preTableID); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrOrderNotFound
			}
			return wrapDBErr(scanErr)
		}

		tag, execErr := tx.Exec(ctx, `
			UPDATE "order" SET status='COMPLETED', total_price=$1, actual_leave_time=$2, assigned_table_id=NULL
			WHERE order_number=$3 AND status = ANY($4)`,
			finalPriceCents, now, id, []string{string(domain.StatusSeated), string(domain.StatusBilled)})
		if execErr != nil {
			return wrapDBErr(execErr)
		}
		if tag.RowsAffected() == 0 {
			return berrors.ErrWrongState
		}

		tableID = preTableID
		if tableID != nil {
			if _, execErr = tx.Exec(ctx, `UPDATE tables SET status='AVAILABLE' WHERE table_id=$1`, *tableID); execErr != nil {
				return wrapDBErr(execErr)
			}
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			return wrapDBErr(commitErr)
		}
		freedTable = tableID
		return nil
	})
	return freedTable, err
}

// RunLateCancellation implements the scheduler's first tick step (spec.md
// §4.6): WAITING orders past the late threshold are CANCELLED; PENDING or
// NOTIFIED orders past the threshold are NO_SHOW with their table freed.
// The select-and-advance happens in one transaction so a replayed tick on
// the same database state is a no-op (property P6).
func (r *OrderRepository) RunLateCancellation(ctx context.Context, now time.Time) ([]int64, error) {
	threshold := now.Add(-constants.LateCancellationAfter)
	var freedTables []int64
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return wrapDBErr(err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, execErr := tx.Exec(ctx, `
			UPDATE "order" SET status='CANCELLED'
			WHERE status='WAITING' AND order_date < $1`, threshold); execErr != nil {
			return wrapDBErr(execErr)
		}

		rows, queryErr := tx.Query(ctx, `
			SELECT order_number, assigned_table_id FROM "order"
			WHERE status = ANY($1) AND order_date < $2`,
			[]string{string(domain.StatusPending), string(domain.StatusNotified)}, threshold)
		if queryErr != nil {
			return wrapDBErr(queryErr)
		}
		var ids []int64
		for rows.Next() {
			var id int64
			var tableID *int64
			if scanErr := rows.Scan(&id, &tableID); scanErr != nil {
				rows.Close()
				return wrapDBErr(scanErr)
			}
			ids = append(ids, id)
			if tableID != nil {
				freedTables = append(freedTables, *tableID)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return wrapDBErr(err)
		}

		if len(ids) > 0 {
			if _, execErr := tx.Exec(ctx, `
				UPDATE "order" SET status='NO_SHOW', assigned_table_id=NULL
				WHERE order_number = ANY($1)`, ids); execErr != nil {
				return wrapDBErr(execErr)
			}
			for _, tableID := range freedTables {
				if _, execErr := tx.Exec(ctx, `UPDATE tables SET status='AVAILABLE' WHERE table_id=$1`, tableID); execErr != nil {
					return wrapDBErr(execErr)
				}
			}
		}

		return wrapDBErr(tx.Commit(ctx))
	})
	return freedTables, err
}

// GetReminders implements the scheduler's second tick step (spec.md §4.6):
// select PENDING orders 115–125 minutes out and advance them to NOTIFIED
// atomically with the selection, so a single order cannot be reminded
// twice (property P6).
func (r *OrderRepository) GetReminders(ctx context.Context, now time.Time) ([]domain.Order, error) {
	lo := now.Add(constants.ReminderWindowMin)
	hi := now.Add(constants.ReminderWindowMax)
	var orders []domain.Order
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE "order" SET status='NOTIFIED'
			WHERE status='PENDING' AND order_date BETWEEN $1 AND $2
			RETURNING `+orderColumns, lo, hi)
		if err != nil {
			return wrapDBErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			o, scanErr := scanOrder(rows)
			if scanErr != nil {
				return wrapDBErr(scanErr)
			}
			orders = append(orders, o)
		}
		return wrapDBErr(rows.Err())
	})
	return orders, err
}

// GetAutomaticInvoices implements the scheduler's third tick step (spec.md
// §4.6): select SEATED orders seated ≥120 minutes and advance to BILLED
// atomically with the selection.
func (r *OrderRepository) GetAutomaticInvoices(ctx context.Context, now time.Time) ([]domain.Order, error) {
	cutoff := now.Add(-constants.AutomaticInvoiceAfter)
	var orders []domain.Order
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE "order" SET status='BILLED', total_price = number_of_guests * $1
			WHERE status='SEATED' AND actual_arrival_time IS NOT NULL AND actual_arrival_time <= $2
			RETURNING `+orderColumns, int64(constants.PricePerGuestCents), cutoff)
		if err != nil {
			return wrapDBErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			o, scanErr := scanOrder(rows)
			if scanErr != nil {
				return wrapDBErr(scanErr)
			}
			orders = append(orders, o)
		}
		return wrapDBErr(rows.Err())
	})
	return orders, err
}

// CancelConflictingOrders implements the opening-hours-change side effect
// (spec.md §4.3's table, last row): future PENDING/NOTIFIED orders that no
// longer fall inside the new hours are CANCELLED. The feasibility re-check
// itself happens in internal/reservation; this method performs the bulk
// cancellation once the conflicting ids are known.
func (r *OrderRepository) CancelConflictingOrders(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `UPDATE "order" SET status='CANCELLED' WHERE order_number = ANY($1)`, ids)
		return wrapDBErr(err)
	})
}

// GetFutureActive returns every PENDING/NOTIFIED order scheduled after now,
// used by the feasibility recheck that follows an opening-hours or table
// mutation (spec.md §4.8).
func (r *OrderRepository) GetFutureActive(ctx context.Context, now time.Time) ([]domain.Order, error) {
	return r.queryList(ctx, `
		SELECT `+orderColumns+` FROM "order"
		WHERE status = ANY($1) AND order_date > $2
		ORDER BY order_date`, []string{string(domain.StatusPending), string(domain.StatusNotified)}, now)
}

// GetRelevantOrdersForToday returns a member's orders scheduled today,
// active or not, for GET_RELEVANT_ORDERS.
func (r *OrderRepository) GetRelevantOrdersForToday(ctx context.Context, memberID int64, today time.Time) ([]domain.Order, error) {
	return r.queryList(ctx, `
		SELECT `+orderColumns+` FROM "order"
		WHERE subscriber_id=$1 AND order_date::date = $2::date
		ORDER BY order_date`, memberID, today)
}

// GetAllActiveToday backs GET_ALL_ACTIVE_ORDERS.
func (r *OrderRepository) GetAllActiveToday(ctx context.Context, today time.Time) ([]domain.Order, error) {
	return r.queryList(ctx, `
		SELECT `+orderColumns+` FROM "order"
		WHERE status = ANY($1) AND order_date::date = $2::date
		ORDER BY order_date`, activeStatusStrings(), today)
}

// GetActiveDiners backs GET_ACTIVE_DINERS: currently seated/billed orders.
func (r *OrderRepository) GetActiveDiners(ctx context.Context) ([]domain.Order, error) {
	return r.queryList(ctx, `
		SELECT `+orderColumns+` FROM "order"
		WHERE status = ANY($1)
		ORDER BY actual_arrival_time`, []string{string(domain.StatusSeated), string(domain.StatusBilled)})
}

// GetWaitingList backs GET_WAITING_LIST.
func (r *OrderRepository) GetWaitingList(ctx context.Context) ([]domain.Order, error) {
	return r.queryList(ctx, `
		SELECT `+orderColumns+` FROM "order"
		WHERE status = ANY($1)
		ORDER BY order_date`, []string{string(domain.StatusWaiting), string(domain.StatusNotified)})
}

// GetMemberHistory backs GET_USER_HISTORY.
func (r *OrderRepository) GetMemberHistory(ctx context.Context, memberID int64) ([]domain.Order, error) {
	return r.queryList(ctx, `
		SELECT `+orderColumns+` FROM "order"
		WHERE subscriber_id=$1
		ORDER BY order_date DESC`, memberID)
}

// EarliestWaitingFitting returns the earliest WAITING order whose guest
// count fits within capacity, for the waitlist-promotion rule in spec.md
// §4.5.
func (r *OrderRepository) EarliestWaitingFitting(ctx context.Context, capacity int) (*domain.Order, error) {
	var order *domain.Order
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT `+orderColumns+` FROM "order"
			WHERE status='WAITING' AND number_of_guests <= $1
			ORDER BY order_date ASC LIMIT 1`, capacity)
		o, scanErr := scanOrder(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return nil
			}
			return wrapDBErr(scanErr)
		}
		order = &o
		return nil
	})
	return order, err
}

func (r *OrderRepository) queryList(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return wrapDBErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			o, scanErr := scanOrder(rows)
			if scanErr != nil {
				return wrapDBErr(scanErr)
			}
			orders = append(orders, o)
		}
		return wrapDBErr(rows.Err())
	})
	return orders, err
}

// PerformanceReport implements GET_PERFORMANCE_REPORT's Postgres-backed
// aggregation (spec.md §4.7), scoped to orders scheduled within the given
// (month, year).
func (r *OrderRepository) PerformanceReport(ctx context.Context, month, year int) (map[string]float64, error) {
	report := make(map[string]float64)
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT
				COALESCE(AVG(GREATEST(0, EXTRACT(EPOCH FROM (actual_arrival_time - order_date))/60))
					FILTER (WHERE actual_arrival_time IS NOT NULL), 0),
				COALESCE(AVG(EXTRACT(EPOCH FROM (actual_leave_time - actual_arrival_time))/60)
					FILTER (WHERE actual_leave_time IS NOT NULL AND actual_arrival_time IS NOT NULL), 0),
				COALESCE(AVG(GREATEST(0, EXTRACT(EPOCH FROM (actual_leave_time - actual_arrival_time))/60 - 120))
					FILTER (WHERE actual_leave_time IS NOT NULL AND actual_arrival_time IS NOT NULL), 0),
				COUNT(*) FILTER (WHERE actual_arrival_time IS NOT NULL AND actual_arrival_time > order_date + INTERVAL '15 minutes'),
				COUNT(*) FILTER (WHERE status='COMPLETED'),
				COUNT(*) FILTER (WHERE entered_waitlist=true)
			FROM "order"
			WHERE EXTRACT(MONTH FROM order_date)=$1 AND EXTRACT(YEAR FROM order_date)=$2`,
			month, year)

		var avgArrivalDelay, avgStay, avgOverstay float64
		var lateCount, completedCount, waitlistCount int64
		if err := row.Scan(&avgArrivalDelay, &avgStay, &avgOverstay, &lateCount, &completedCount, &waitlistCount); err != nil {
			return wrapDBErr(err)
		}
		report["avgArrivalDelayMinutes"] = avgArrivalDelay
		report["avgStayMinutes"] = avgStay
		report["avgOverstayMinutes"] = avgOverstay
		report["lateCount"] = float64(lateCount)
		report["completedCount"] = float64(completedCount)
		report["enteredWaitlistCount"] = float64(waitlistCount)
		return nil
	})
	return report, err
}

// SubscriptionReport implements GET_SUBSCRIPTION_REPORT's Postgres-backed
// aggregation (spec.md §4.7): members-only, per-day order counts keyed by
// day number, and per-day waitlist-entry counts keyed "W-<day>".
func (r *OrderRepository) SubscriptionReport(ctx context.Context, month, year int) (map[string]int, error) {
	report := make(map[string]int)
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT EXTRACT(DAY FROM order_date)::int AS day,
				COUNT(*) FILTER (WHERE entered_waitlist=false),
				COUNT(*) FILTER (WHERE entered_waitlist=true)
			FROM "order"
			WHERE subscriber_id IS NOT NULL
				AND EXTRACT(MONTH FROM order_date)=$1 AND EXTRACT(YEAR FROM order_date)=$2
			GROUP BY day`, month, year)
		if err != nil {
			return wrapDBErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			var day, count, waitlistCount int
			if scanErr := rows.Scan(&day, &count, &waitlistCount); scanErr != nil {
				return wrapDBErr(scanErr)
			}
			report[strconv.Itoa(day)] = count
			report["W-"+strconv.Itoa(day)] = waitlistCount
		}
		return wrapDBErr(rows.Err())
	})
	return report, err
}

func activeStatusStrings() []string {
	out := make([]string, len(domain.ActiveStatuses))
	for i, s := range domain.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

func terminalStatusStrings() []string {
	out := make([]string, len(domain.TerminalStatuses))
	for i, s := range domain.TerminalStatuses {
		out[i] = string(s)
	}
	return out
}
