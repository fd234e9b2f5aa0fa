package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"bistro-server/internal/domain"
	berrors "bistro-server/pkg/errors"
)

// HoursRepository implements spec.md §4.2's Hours operations against the
// fixed `opening_hours` table (§6.2).
type HoursRepository struct {
	*base
}

func scanHours(row pgx.Row) (domain.OpeningHours, error) {
	var h domain.OpeningHours
	var dayOfWeek *int
	var specificDate *time.Time
	err := row.Scan(&h.ID, &dayOfWeek, &specificDate, &h.OpenTime, &h.CloseTime, &h.IsClosed)
	if err != nil {
		return domain.OpeningHours{}, err
	}
	h.DayOfWeek = dayOfWeek
	h.SpecificDate = specificDate
	return h, nil
}

// List returns every opening-hours rule.
func (r *HoursRepository) List(ctx context.Context) ([]domain.OpeningHours, error) {
	var rules []domain.OpeningHours
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT id, day_of_week, specific_date, open_time, close_time, is_closed FROM opening_hours ORDER BY id`)
		if err != nil {
			return wrapDBErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			h, scanErr := scanHours(rows)
			if scanErr != nil {
				return wrapDBErr(scanErr)
			}
			rules = append(rules, h)
		}
		return wrapDBErr(rows.Err())
	})
	return rules, err
}

// GetForDate returns the effective rule for a calendar date, preferring a
// specific-date match over the day-of-week rule (invariant H1).
func (r *HoursRepository) GetForDate(ctx context.Context, date time.Time) (domain.OpeningHours, error) {
	dow := domain.DayOfWeek(date)
	var result domain.OpeningHours
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT id, day_of_week, specific_date, open_time, close_time, is_closed
			FROM opening_hours
			WHERE specific_date = $1::date
			LIMIT 1`, date)
		h, scanErr := scanHours(row)
		if scanErr == nil {
			result = h
			return nil
		}
		if !errors.Is(scanErr, pgx.ErrNoRows) {
			return wrapDBErr(scanErr)
		}

		row = conn.QueryRow(ctx, `
			SELECT id, day_of_week, specific_date, open_time, close_time, is_closed
			FROM opening_hours
			WHERE day_of_week = $1 AND specific_date IS NULL
			LIMIT 1`, dow)
		h, scanErr = scanHours(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return berrors.ErrOutsideHours
			}
			return wrapDBErr(scanErr)
		}
		result = h
		return nil
	})
	return result, err
}

// UpsertForDayOrDate inserts or replaces the rule for h's (day-of-week,
// specific-date) pair, enforcing invariant H2's uniqueness.
func (r *HoursRepository) UpsertForDayOrDate(ctx context.Context, h domain.OpeningHours) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		if h.SpecificDate != nil {
			_, err := conn.Exec(ctx, `
				INSERT INTO opening_hours (specific_date, open_time, close_time, is_closed)
				VALUES ($1,$2,$3,$4)
				ON CONFLICT (specific_date) WHERE specific_date IS NOT NULL
				DO UPDATE SET open_time=EXCLUDED.open_time, close_time=EXCLUDED.close_time, is_closed=EXCLUDED.is_closed`,
				h.SpecificDate, h.OpenTime, h.CloseTime, h.IsClosed)
			return wrapDBErr(err)
		}
		_, err := conn.Exec(ctx, `
			INSERT INTO opening_hours (day_of_week, open_time, close_time, is_closed)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (day_of_week) WHERE specific_date IS NULL
			DO UPDATE SET open_time=EXCLUDED.open_time, close_time=EXCLUDED.close_time, is_closed=EXCLUDED.is_closed`,
			h.DayOfWeek, h.OpenTime, h.CloseTime, h.IsClosed)
		return wrapDBErr(err)
	})
}
