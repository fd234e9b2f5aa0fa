// Package reservation implements the Reservation Engine (spec.md §4.4,
// component C): opening-hours and booking-window validation, best-fit
// feasibility, alternative-time suggestion, and available-slots
// enumeration, fronted by the two-tier Hours Cache of SPEC_FULL.md §4.4+.
package reservation

import (
	"context"
	"fmt"
	"time"

	"bistro-server/internal/cache"
	"bistro-server/internal/domain"
	"bistro-server/internal/repository/postgres"
	"bistro-server/pkg/constants"
	berrors "bistro-server/pkg/errors"
)

// Offsets is the fixed order in which alternative times are tried and, if
// feasible, reported (spec.md §4.4, property P8).
var Offsets = []time.Duration{-30 * time.Minute, 30 * time.Minute, -60 * time.Minute, 60 * time.Minute}

// Decision is the result of checkAvailability (spec.md §4.4's contract).
type Decision struct {
	Approved     bool
	Alternatives []time.Time // only populated when !Approved
}

// Engine implements checkAvailability against the order/table repositories,
// fronted by an Hours Cache.
type Engine struct {
	orders *postgres.OrderRepository
	tables *postgres.TableRepository
	hours  *cache.HoursCache
}

// New wires the engine to its repositories and hours cache.
func New(orders *postgres.OrderRepository, tables *postgres.TableRepository, hours *cache.HoursCache) *Engine {
	return &Engine{orders: orders, tables: tables, hours: hours}
}

// CheckAvailability implements spec.md §4.4's contract: APPROVED, a list of
// feasible alternative timestamps, or a validation error.
func (e *Engine) CheckAvailability(ctx context.Context, candidateTime time.Time, guests int, excludeOrderID int64) (Decision, error) {
	if err := e.checkHoursAndWindow(ctx, candidateTime); err != nil {
		return Decision{}, err
	}

	tables, err := e.tableCapacities(ctx)
	if err != nil {
		return Decision{}, err
	}
	if MaxCapacity(tables) < guests {
		return Decision{}, berrors.ErrNoTables
	}

	feasible, err := e.isFeasible(ctx, candidateTime, guests, excludeOrderID, tables)
	if err != nil {
		return Decision{}, err
	}
	if feasible {
		return Decision{Approved: true}, nil
	}

	alts, err := e.alternatives(ctx, candidateTime, guests, excludeOrderID, tables)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Approved: false, Alternatives: alts}, nil
}

// checkHoursAndWindow applies spec.md §4.4's opening-hours check (via the
// Hours Cache) and booking-window check.
func (e *Engine) checkHoursAndWindow(ctx context.Context, t time.Time) error {
	now := time.Now().UTC()
	if t.Before(now.Add(constants.MinBookingLead)) {
		return berrors.ErrTooSoon
	}
	if t.After(now.Add(constants.MaxBookingAhead)) {
		return berrors.ErrTooFar
	}

	hours, err := e.hours.GetForDate(ctx, t)
	if err != nil {
		return err
	}
	if !hours.Covers(t) {
		return berrors.ErrOutsideHours
	}
	return nil
}

// isFeasible runs the best-fit test for candidateTime/guests against every
// other active order overlapping the ±120-minute window (spec.md §4.4).
func (e *Engine) isFeasible(ctx context.Context, t time.Time, guests int, excludeOrderID int64, tables []TableCapacity) (bool, error) {
	overlapping, err := e.orders.GetOverlappingActive(ctx, t, excludeOrderID)
	if err != nil {
		return false, err
	}
	groups := make([]int, 0, len(overlapping)+1)
	for _, o := range overlapping {
		groups = append(groups, o.Guests)
	}
	groups = append(groups, guests)
	return BestFitFeasible(groups, tables), nil
}

// alternatives tests the fixed offsets in spec.md §4.4's order, filtering
// out any that fail opening-hours/booking-window or feasibility.
func (e *Engine) alternatives(ctx context.Context, t time.Time, guests int, excludeOrderID int64, tables []TableCapacity) ([]time.Time, error) {
	var out []time.Time
	for _, offset := range Offsets {
		candidate := t.Add(offset)
		if err := e.checkHoursAndWindow(ctx, candidate); err != nil {
			continue
		}
		feasible, err := e.isFeasible(ctx, candidate, guests, excludeOrderID, tables)
		if err != nil {
			return nil, err
		}
		if feasible {
			out = append(out, candidate)
		}
	}
	return out, nil
}

// AvailableSlots implements spec.md §4.4's available-slots enumeration for
// a chosen date and guest count: 30-minute buckets from open to close-60m,
// dropping buckets earlier than now+60m.
func (e *Engine) AvailableSlots(ctx context.Context, date time.Time, guests int) ([]string, error) {
	hours, err := e.hours.GetForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if hours.IsClosed {
		return []string{"CLOSED"}, nil
	}

	tables, err := e.tableCapacities(ctx)
	if err != nil {
		return nil, err
	}
	if MaxCapacity(tables) < guests {
		return nil, berrors.ErrNoTables
	}

	open := domain.TimeOfDay(date, hours.OpenTime)
	closeT := domain.TimeOfDay(date, hours.CloseTime)
	lastBucket := closeT.Add(-constants.SlotCloseBuffer)
	earliestAllowed := time.Now().UTC().Add(constants.MinBookingLead)

	var slots []string
	for bucket := open; !bucket.After(lastBucket); bucket = bucket.Add(constants.SlotBucket) {
		if bucket.Before(earliestAllowed) {
			continue
		}
		feasible, err := e.isFeasible(ctx, bucket, guests, 0, tables)
		if err != nil {
			return nil, err
		}
		if feasible {
			slots = append(slots, bucket.Format("15:04"))
		}
	}

	if len(slots) == 0 {
		return []string{"FULL"}, nil
	}
	return slots, nil
}

func (e *Engine) tableCapacities(ctx context.Context) ([]TableCapacity, error) {
	tables, err := e.tables.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TableCapacity, len(tables))
	for i, t := range tables {
		out[i] = TableCapacity{ID: t.ID, Capacity: t.Capacity}
	}
	return out, nil
}

// String aids log messages that name a decision.
func (d Decision) String() string {
	if d.Approved {
		return "APPROVED"
	}
	return fmt.Sprintf("ALTERNATIVES(%d)", len(d.Alternatives))
}
