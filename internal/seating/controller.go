// Package seating implements the Seating/Waitlist Controller of spec.md
// §4.5 (component D): arrival-by-code, walk-in, leave-waitlist, and
// payment/completion with waitlist promotion, plus the best-effort event
// outbox and audit log of SPEC_FULL.md §4.5+.
package seating

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bistro-server/internal/domain"
	"bistro-server/internal/events"
	"bistro-server/internal/notify"
	"bistro-server/internal/repository/postgres"
	"bistro-server/internal/reservation"
	"bistro-server/pkg/constants"
	"bistro-server/pkg/crypto"
	berrors "bistro-server/pkg/errors"
)

const maxCodeAttempts = 8

// Controller wires the order/table repositories, the reservation engine,
// and the outbox/audit/notification side channels.
type Controller struct {
	orders *postgres.OrderRepository
	tables *postgres.TableRepository
	engine *reservation.Engine
	outbox *events.Outbox
	audit  *events.AuditLog
	bus    *notify.Bus
	logger *zap.Logger
}

// New builds a Controller. outbox/audit/bus may all be nil (their
// respective backends unreachable at startup); every side-effect call is
// safe against a nil receiver.
func New(orders *postgres.OrderRepository, tables *postgres.TableRepository, engine *reservation.Engine, outbox *events.Outbox, audit *events.AuditLog, bus *notify.Bus, logger *zap.Logger) *Controller {
	return &Controller{orders: orders, tables: tables, engine: engine, outbox: outbox, audit: audit, bus: bus, logger: logger}
}

// Book implements CREATE_ORDER (spec.md §6.1): checkAvailability decides
// whether candidateTime is approved; on approval a fresh PENDING order is
// created with a unique confirmation code, otherwise the caller receives
// the engine's Decision (ORDER_ALTERNATIVES) with no order created.
func (c *Controller) Book(ctx context.Context, draft domain.Order, candidateTime time.Time, now time.Time) (domain.Order, reservation.Decision, error) {
	decision, err := c.engine.CheckAvailability(ctx, candidateTime, draft.Guests, 0)
	if err != nil {
		return domain.Order{}, reservation.Decision{}, err
	}
	if !decision.Approved {
		return domain.Order{}, decision, nil
	}

	draft.ScheduledTime = candidateTime
	draft.PlacedTime = now
	draft.Status = domain.StatusPending
	order, err := c.createWithCode(ctx, draft)
	if err != nil {
		return domain.Order{}, reservation.Decision{}, err
	}
	c.recordTransition(ctx, order.ID, "", domain.StatusPending, 0, "reservation booked", now)
	return order, decision, nil
}

// Arrival implements spec.md §4.5's arrival-by-confirmation-code path.
func (c *Controller) Arrival(ctx context.Context, code int, now time.Time) (domain.Order, error) {
	order, err := c.orders.GetByActiveCode(ctx, code)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != domain.StatusPending && order.Status != domain.StatusNotified {
		return domain.Order{}, berrors.ErrWrongState
	}
	if abs(now.Sub(order.ScheduledTime)) > constants.ArrivalTolerance {
		return domain.Order{}, berrors.ErrOutsideWindow
	}

	tableID, err := c.assignTable(ctx, order.Guests)
	if err != nil {
		return domain.Order{}, err
	}
	if err := c.orders.AssignTableAndSeat(ctx, order.ID, tableID, now); err != nil {
		_ = c.tables.Free(ctx, tableID)
		return domain.Order{}, err
	}

	c.recordTransition(ctx, order.ID, order.Status, domain.StatusSeated, 0, "arrival", now)

	order.Status = domain.StatusSeated
	order.AssignedTable = &tableID
	order.ActualArrivalTime = &now
	return order, nil
}

// WalkIn implements spec.md §4.5's walk-in path: seat immediately if a
// table fits, otherwise enqueue on the waitlist. draft carries guests and
// contact; ScheduledTime/PlacedTime/ConfirmationCode are assigned here.
func (c *Controller) WalkIn(ctx context.Context, draft domain.Order, now time.Time) (domain.Order, error) {
	active, err := c.orders.HasActiveOrderToday(ctx, draft.Contact.Phone, draft.Contact.Email, now)
	if err != nil {
		return domain.Order{}, err
	}
	if active {
		return domain.Order{}, berrors.ErrAlreadyActive
	}

	draft.PlacedTime = now
	draft.ScheduledTime = now

	tableID, tableErr := c.assignTable(ctx, draft.Guests)
	if tableErr == nil {
		draft.Status = domain.StatusSeated
		draft.AssignedTable = &tableID
		draft.ActualArrivalTime = &now
		order, err := c.createWithCode(ctx, draft)
		if err != nil {
			_ = c.tables.Free(ctx, tableID)
			return domain.Order{}, err
		}
		c.recordTransition(ctx, order.ID, "", domain.StatusSeated, 0, "walk-in seated", now)
		return order, nil
	}
	if tableErr != berrors.ErrNoFreeTable {
		return domain.Order{}, tableErr
	}

	draft.Status = domain.StatusWaiting
	draft.EnteredWaitlist = true
	order, err := c.createWithCode(ctx, draft)
	if err != nil {
		return domain.Order{}, err
	}
	c.recordTransition(ctx, order.ID, "", domain.StatusWaiting, 0, "walk-in waitlisted", now)
	return order, nil
}

// LeaveWaitlist implements spec.md §4.5's leave-waitlist path.
func (c *Controller) LeaveWaitlist(ctx context.Context, code int, now time.Time) (domain.Order, error) {
	order, err := c.orders.GetByActiveCode(ctx, code)
	if err != nil {
		return domain.Order{}, err
	}
	switch order.Status {
	case domain.StatusWaiting, domain.StatusNotified, domain.StatusPending:
	default:
		return domain.Order{}, berrors.ErrNotLeavable
	}

	if err := c.orders.UpdateStatus(ctx, order.ID, domain.StatusCancelled); err != nil {
		return domain.Order{}, err
	}
	c.recordTransition(ctx, order.ID, order.Status, domain.StatusCancelled, 0, "guest left waitlist", now)

	order.Status = domain.StatusCancelled
	return order, nil
}

// Pay implements spec.md §4.5's processPayment: completion, discount, and
// waitlist promotion of the freed table.
func (c *Controller) Pay(ctx context.Context, code int, sessionUserID int64, sessionRole domain.Role, now time.Time) (domain.Order, error) {
	order, err := c.orders.GetByActiveCode(ctx, code)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != domain.StatusSeated && order.Status != domain.StatusBilled {
		return domain.Order{}, berrors.ErrWrongState
	}

	finalPrice := finalPriceCents(order, sessionUserID, sessionRole)

	freedTable, err := c.orders.CompleteOrder(ctx, order.ID, finalPrice, now)
	if err != nil {
		return domain.Order{}, err
	}
	c.recordTransition(ctx, order.ID, order.Status, domain.StatusCompleted, sessionUserID, "payment", now)

	if err := c.promote(ctx, freedTable, now); err != nil && c.logger != nil {
		c.logger.Warn("seating: waitlist promotion failed", zap.Error(err), zap.Int64("table_id", derefOr0(freedTable)))
	}

	order.Status = domain.StatusCompleted
	order.TotalPrice = &finalPrice
	order.AssignedTable = nil
	order.ActualLeaveTime = &now
	return order, nil
}

// assignTable scans AVAILABLE tables ascending by capacity and claims the
// first one whose capacity fits guests, retrying the next candidate if a
// concurrent handler wins the race (spec.md §4.5 step 4 / §5's conditional-
// update discipline).
func (c *Controller) assignTable(ctx context.Context, guests int) (int64, error) {
	candidates, err := c.tables.ListAvailableAscendingCapacity(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range candidates {
		if !t.Fits(guests) {
			continue
		}
		ok, err := c.tables.TryOccupy(ctx, t.ID)
		if err != nil {
			return 0, err
		}
		if ok {
			return t.ID, nil
		}
	}
	return 0, berrors.ErrNoFreeTable
}

// promote implements spec.md §4.5's waitlist-promotion rule: the earliest
// WAITING order whose guests fit the freed table's capacity moves to
// NOTIFIED with a reset scheduled-time, and TABLE_READY is broadcast.
func (c *Controller) promote(ctx context.Context, freedTable *int64, now time.Time) error {
	if freedTable == nil {
		return nil
	}
	capacity, err := c.tables.GetCapacity(ctx, *freedTable)
	if err != nil {
		return err
	}
	candidate, err := c.orders.EarliestWaitingFitting(ctx, capacity)
	if err != nil {
		return err
	}
	if candidate == nil {
		return nil
	}
	if err := c.orders.UpdateStatus(ctx, candidate.ID, domain.StatusNotified); err != nil {
		return err
	}
	if err := c.orders.SetScheduledTime(ctx, candidate.ID, now); err != nil {
		return err
	}
	c.recordTransition(ctx, candidate.ID, domain.StatusWaiting, domain.StatusNotified, 0, "waitlist promotion", now)
	c.bus.Publish(ctx, notify.Notification{Type: "TABLE_READY", Data: map[string]any{
		"orderId":         candidate.ID,
		"confirmationCode": candidate.ConfirmationCode,
		"tableId":         *freedTable,
	}})
	return nil
}

// createWithCode assigns a fresh random confirmation code and retries
// Create on a unique-violation collision (invariant O1).
func (c *Controller) createWithCode(ctx context.Context, draft domain.Order) (domain.Order, error) {
	var lastErr error
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := crypto.GenerateRandomInt(constants.ConfirmationCodeMin, constants.ConfirmationCodeMax+1)
		if err != nil {
			return domain.Order{}, err
		}
		draft.ConfirmationCode = int(code)
		order, err := c.orders.Create(ctx, draft)
		if err == nil {
			return order, nil
		}
		if err != berrors.ErrDuplicateCode {
			return domain.Order{}, err
		}
		lastErr = err
	}
	return domain.Order{}, lastErr
}

// recordTransition fans a completed transition out to the best-effort
// outbox and audit log; failures there are logged by the channels
// themselves and never surfaced here.
func (c *Controller) recordTransition(ctx context.Context, orderID int64, from, to domain.OrderStatus, actor int64, detail string, now time.Time) {
	c.outbox.Publish(ctx, orderID, from, to, now)
	c.audit.Record(ctx, orderID, from, to, actor, detail, now)
}

// finalPriceCents implements spec.md §4.5's discount rule: 10% off when the
// caller session is the order's own member, applied to the stored total
// price or guests×100 if unset, rounded half-up to the cent. Uses
// shopspring/decimal rather than floating point so the discount percentage
// never accumulates representation error across repeated calculations.
func finalPriceCents(order domain.Order, sessionUserID int64, sessionRole domain.Role) int64 {
	base := decimal.NewFromInt(int64(order.Guests) * constants.PricePerGuestCents)
	if order.TotalPrice != nil {
		base = decimal.NewFromInt(*order.TotalPrice)
	}
	if sessionRole != domain.RoleMember || order.MemberID == 0 || order.MemberID != sessionUserID {
		return base.IntPart()
	}
	retained := decimal.NewFromInt(100 - int64(constants.MemberDiscountPercent)).Div(decimal.NewFromInt(100))
	return base.Mul(retained).Round(0).IntPart()
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func derefOr0(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
