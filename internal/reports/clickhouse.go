// Package reports implements GET_PERFORMANCE_REPORT and
// GET_SUBSCRIPTION_REPORT (spec.md §4.7), backed by ClickHouse per
// SPEC_FULL.md §4.7+ with a Postgres fallback when ClickHouse is
// unreachable — slower, always correct, and never a SystemError on its
// own (only Postgres unavailability is).
package reports

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"bistro-server/internal/domain"
	"bistro-server/internal/repository/postgres"
)

const factsTable = "completed_order_facts"

// Store answers report queries, preferring the denormalized ClickHouse
// fact table and falling back to a live Postgres aggregation.
type Store struct {
	ch     *sql.DB
	orders *postgres.OrderRepository
	logger *zap.Logger
}

// New builds a Store. ch may be nil (ClickHouse unreachable at startup) —
// every query then runs straight against Postgres.
func New(ch *sql.DB, orders *postgres.OrderRepository, logger *zap.Logger) *Store {
	return &Store{ch: ch, orders: orders, logger: logger}
}

// Performance implements GET_PERFORMANCE_REPORT for (month, year).
func (s *Store) Performance(ctx context.Context, month, year int) (map[string]float64, error) {
	if s.ch != nil {
		report, err := s.performanceFromClickHouse(ctx, month, year)
		if err == nil {
			return report, nil
		}
		if s.logger != nil {
			s.logger.Warn("reports: clickhouse performance query failed, falling back to postgres", zap.Error(err))
		}
	}
	return s.orders.PerformanceReport(ctx, month, year)
}

// Subscription implements GET_SUBSCRIPTION_REPORT for (month, year).
func (s *Store) Subscription(ctx context.Context, month, year int) (map[string]int, error) {
	if s.ch != nil {
		report, err := s.subscriptionFromClickHouse(ctx, month, year)
		if err == nil {
			return report, nil
		}
		if s.logger != nil {
			s.logger.Warn("reports: clickhouse subscription query failed, falling back to postgres", zap.Error(err))
		}
	}
	return s.orders.SubscriptionReport(ctx, month, year)
}

func (s *Store) performanceFromClickHouse(ctx context.Context, month, year int) (map[string]float64, error) {
	row := s.ch.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT
			avgOrZero(greatest(0, dateDiff('second', scheduled_time, actual_arrival_time)) / 60.0),
			avgOrZero(dateDiff('second', actual_arrival_time, actual_leave_time) / 60.0),
			avgOrZero(greatest(0, dateDiff('second', actual_arrival_time, actual_leave_time) / 60.0 - 120)),
			countIf(dateDiff('minute', scheduled_time, actual_arrival_time) > 15),
			countIf(to_status = 'COMPLETED'),
			countIf(entered_waitlist = 1)
		FROM %s
		WHERE toMonth(scheduled_time) = ? AND toYear(scheduled_time) = ?`, factsTable), month, year)

	var avgArrivalDelay, avgStay, avgOverstay float64
	var lateCount, completedCount, waitlistCount uint64
	if err := row.Scan(&avgArrivalDelay, &avgStay, &avgOverstay, &lateCount, &completedCount, &waitlistCount); err != nil {
		return nil, err
	}
	return map[string]float64{
		"avgArrivalDelayMinutes": avgArrivalDelay,
		"avgStayMinutes":         avgStay,
		"avgOverstayMinutes":     avgOverstay,
		"lateCount":              float64(lateCount),
		"completedCount":         float64(completedCount),
		"enteredWaitlistCount":   float64(waitlistCount),
	}, nil
}

func (s *Store) subscriptionFromClickHouse(ctx context.Context, month, year int) (map[string]int, error) {
	rows, err := s.ch.QueryContext(ctx, fmt.Sprintf(`
		SELECT toDayOfMonth(scheduled_time) AS day,
			countIf(entered_waitlist = 0), countIf(entered_waitlist = 1)
		FROM %s
		WHERE is_member = 1 AND toMonth(scheduled_time) = ? AND toYear(scheduled_time) = ?
		GROUP BY day`, factsTable), month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := make(map[string]int)
	for rows.Next() {
		var day, count, waitlistCount int
		if err := rows.Scan(&day, &count, &waitlistCount); err != nil {
			return nil, err
		}
		report[fmt.Sprintf("%d", day)] = count
		report[fmt.Sprintf("W-%d", day)] = waitlistCount
	}
	return report, rows.Err()
}

// RecordFact inserts one CompletedOrderFact row for o, best-effort
// (SPEC_FULL.md §3+). No code path in the server calls it, so the server
// itself never fills the fact table. Failure is logged, never returned —
// the fact table is a derived convenience, not the system of record.
func (s *Store) RecordFact(ctx context.Context, o domain.Order) {
	if s.ch == nil {
		return
	}
	_, err := s.ch.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s
			(order_id, scheduled_time, actual_arrival_time, actual_leave_time, to_status, entered_waitlist, is_member, guests)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, factsTable),
		o.ID, o.ScheduledTime, o.ActualArrivalTime, o.ActualLeaveTime, string(o.Status), o.EnteredWaitlist, !o.IsGuest(), o.Guests)
	if err != nil && s.logger != nil {
		s.logger.Warn("reports: clickhouse fact insert failed", zap.Error(err), zap.Int64("order_id", o.ID))
	}
}
