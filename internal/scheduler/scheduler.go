// Package scheduler implements the single background ticker of spec.md
// §4.6 (component F): late cancellation, reminders, and automatic
// invoicing, publishing over the Notification Bus per SPEC_FULL.md §4.6+.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bistro-server/internal/domain"
	"bistro-server/internal/events"
	"bistro-server/internal/metrics"
	"bistro-server/internal/notify"
	"bistro-server/internal/repository/postgres"
	"bistro-server/pkg/constants"
	"bistro-server/pkg/timeutil"
)

// Scheduler runs the three-step tick described in spec.md §4.6. A single
// timer (not a ticker) is used so an overrunning tick is never stacked
// against the next period (spec.md §5 — "fixed-rate with catch-up is not
// required").
type Scheduler struct {
	orders *postgres.OrderRepository
	outbox *events.Outbox
	audit  *events.AuditLog
	bus    *notify.Bus
	logger *zap.Logger
}

// New wires the scheduler to the order repository and its side channels.
func New(orders *postgres.OrderRepository, outbox *events.Outbox, audit *events.AuditLog, bus *notify.Bus, logger *zap.Logger) *Scheduler {
	return &Scheduler{orders: orders, outbox: outbox, audit: audit, bus: bus, logger: logger}
}

// Run blocks until ctx is cancelled, firing one tick after the 5s warmup
// and every 10s thereafter.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(constants.SchedulerWarmup)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(constants.SchedulerTickInterval)
		}
	}
}

// tick runs the three steps in spec.md §4.6's fixed order. Each step's
// select-then-advance repository call is independently idempotent
// (property P6); a step's failure is logged and does not block the
// remaining steps.
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.SchedulerTickSeconds.Observe(time.Since(start).Seconds()) }()

	now := timeutil.Now()

	if _, err := s.orders.RunLateCancellation(ctx, now); err != nil && s.logger != nil {
		s.logger.Error("scheduler: late cancellation step failed", zap.Error(err))
	}

	reminders, err := s.orders.GetReminders(ctx, now)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("scheduler: reminders step failed", zap.Error(err))
		}
	} else {
		for _, o := range reminders {
			s.outbox.Publish(ctx, o.ID, domain.StatusPending, domain.StatusNotified, now)
			s.audit.Record(ctx, o.ID, domain.StatusPending, domain.StatusNotified, 0, "scheduler reminder", now)
			s.bus.Publish(ctx, notify.Notification{Type: "SERVER_NOTIFICATION", Data: map[string]any{
				"subtype":          "REMINDER",
				"orderId":          o.ID,
				"confirmationCode": o.ConfirmationCode,
				"scheduledTime":    o.ScheduledTime,
			}})
		}
	}

	invoices, err := s.orders.GetAutomaticInvoices(ctx, now)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("scheduler: automatic invoice step failed", zap.Error(err))
		}
		return
	}
	for _, o := range invoices {
		s.outbox.Publish(ctx, o.ID, domain.StatusSeated, domain.StatusBilled, now)
		s.audit.Record(ctx, o.ID, domain.StatusSeated, domain.StatusBilled, 0, "scheduler automatic invoice", now)
		s.bus.Publish(ctx, notify.Notification{Type: "SERVER_NOTIFICATION", Data: map[string]any{
			"subtype":          "INVOICE",
			"orderId":          o.ID,
			"confirmationCode": o.ConfirmationCode,
			"totalPrice":       o.TotalPrice,
		}})
	}
}
