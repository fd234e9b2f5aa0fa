package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bistro-server/internal/auth"
	"bistro-server/internal/domain"
	"bistro-server/internal/protocol"
	berrors "bistro-server/pkg/errors"
	"bistro-server/pkg/timeutil"
)

// route dispatches one decoded envelope to its handler, per the action-tag
// table of spec.md §6.1.
func (d *Dispatcher) route(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	switch env.Type {
	case "LOGIN":
		return d.handleLogin(ctx, state, env)
	case "REGISTER_CLIENT":
		return d.handleRegisterClient(ctx, env)
	case "IDENTIFY_BY_QR":
		return d.handleIdentify(ctx, state, env)
	case "GET_USER_HISTORY":
		return d.handleUserHistory(ctx, env)
	case "UPDATE_USER_INFO":
		return d.handleUpdateUserInfo(ctx, state, env)
	case "GET_ORDER_BY_CODE":
		return d.handleGetOrderByCode(ctx, env)
	case "CANCEL_ORDER":
		return d.handleCancelOrder(ctx, state, env)
	case "GET_AVAILABLE_TIMES":
		return d.handleAvailableTimes(ctx, env)
	case "CREATE_ORDER":
		return d.handleCreateOrder(ctx, env)
	case "ENTER_WAITLIST":
		return d.handleEnterWaitlist(ctx, env)
	case "LEAVE_WAITLIST":
		return d.handleLeaveWaitlist(ctx, state, env)
	case "VALIDATE_ARRIVAL":
		return d.handleValidateArrival(ctx, state, env)
	case "PAY_BILL":
		return d.handlePayBill(ctx, state, env)
	case "UPDATE_ORDER_STATUS":
		return d.handleUpdateOrderStatus(ctx, state, env)
	case "GET_OPENING_HOURS":
		return d.handleGetOpeningHours(ctx)
	case "UPDATE_OPENING_HOURS":
		return d.handleUpdateOpeningHours(ctx, state, env)
	case "GET_ALL_TABLES":
		return d.handleGetAllTables(ctx)
	case "ADD_TABLE":
		return d.handleAddTable(ctx, state, env)
	case "REMOVE_TABLE":
		return d.handleRemoveTable(ctx, state, env)
	case "UPDATE_TABLE":
		return d.handleUpdateTable(ctx, state, env)
	case "GET_ACTIVE_DINERS":
		return d.handleGetActiveDiners(ctx, state)
	case "GET_ALL_ACTIVE_ORDERS":
		return d.handleGetAllActiveOrders(ctx, state)
	case "GET_WAITING_LIST":
		return d.handleGetWaitingList(ctx, state)
	case "GET_RELEVANT_ORDERS":
		return d.handleGetRelevantOrders(ctx, state)
	case "GET_PERFORMANCE_REPORT":
		return d.handlePerformanceReport(ctx, state, env)
	case "GET_SUBSCRIPTION_REPORT":
		return d.handleSubscriptionReport(ctx, state, env)
	case "RESTORE_CODE":
		return d.handleRestoreCode(ctx, env)
	case "LOGOUT":
		return d.handleLogout(ctx, state)
	case "CLIENT_QUIT":
		return protocol.NewEnvelope("CLIENT_QUIT", nil)
	default:
		return protocol.Envelope{}, fmt.Errorf("dispatcher: unknown action tag %q: %w", env.Type, berrors.ErrInvalidInput)
	}
}

func (d *Dispatcher) handleLogin(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	var req loginRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	user, err := d.sessions.Login(ctx, state.handle, req.Username, req.Password)
	if err != nil {
		return protocol.Envelope{}, err
	}
	state.user = &user
	return reply("LOGIN", user)
}

func (d *Dispatcher) handleRegisterClient(ctx context.Context, env protocol.Envelope) (protocol.Envelope, error) {
	var req registerClientRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	draft := domain.User{
		Username: req.Username, Password: req.Password,
		FirstName: req.FirstName, LastName: req.LastName,
		Role: req.Role, Phone: req.Phone, Email: req.Email,
	}
	if draft.Role == domain.RoleMember {
		code, err := d.freshMembershipCode(ctx)
		if err != nil {
			return protocol.Envelope{}, err
		}
		draft.MembershipCode = &code
	}
	user, err := d.users.RegisterMember(ctx, draft)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("REGISTER_CLIENT", user)
}

func (d *Dispatcher) handleIdentify(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	var req identifyRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	user, err := d.sessions.IdentifyByQR(ctx, req.Code)
	if err != nil {
		code, parseErr := parseInt(req.Code)
		if parseErr != nil {
			return protocol.Envelope{}, err
		}
		user, err = d.sessions.IdentifyByCode(ctx, code)
		if err != nil {
			return protocol.Envelope{}, err
		}
	}
	state.user = &user
	return reply("IDENTIFY_BY_QR", user)
}

func (d *Dispatcher) handleUserHistory(ctx context.Context, env protocol.Envelope) (protocol.Envelope, error) {
	var req userIDRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	orders, err := d.orders.GetMemberHistory(ctx, req.UserID)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_USER_HISTORY", orders)
}

func (d *Dispatcher) handleUpdateUserInfo(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrUnauthorized
	}
	var req updateUserInfoRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	if err := d.users.UpdateContact(ctx, state.user.ID, req.Phone, req.Email, req.FirstName, req.LastName); err != nil {
		return protocol.Envelope{}, err
	}
	return reply("UPDATE_USER_INFO", ok)
}

func (d *Dispatcher) handleGetOrderByCode(ctx context.Context, env protocol.Envelope) (protocol.Envelope, error) {
	var req codeRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	order, err := d.orders.GetByActiveCode(ctx, req.ConfirmationCode)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_ORDER_BY_CODE", order)
}

// requireOwnership loads the order by code and, unless the caller is staff,
// enforces auth.RequireOwnerOrContact (spec.md §4.9): a member order only
// by that member, a guest order only by a caller presenting the matching
// phone or email from codeRequest's optional contact fields.
func (d *Dispatcher) requireOwnership(ctx context.Context, state *connState, req codeRequest) (domain.Order, error) {
	order, err := d.orders.GetByActiveCode(ctx, req.ConfirmationCode)
	if err != nil {
		return domain.Order{}, err
	}
	if state.user != nil && state.user.IsStaff() {
		return order, nil
	}
	var callerID int64
	if state.user != nil {
		callerID = state.user.ID
	}
	if err := auth.RequireOwnerOrContact(order, callerID, req.ContactPhone, req.ContactEmail); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (d *Dispatcher) handleCancelOrder(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	var req codeRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	if _, err := d.requireOwnership(ctx, state, req); err != nil {
		return protocol.Envelope{}, err
	}
	if _, err := d.seating.LeaveWaitlist(ctx, req.ConfirmationCode, timeutil.Now()); err != nil {
		return protocol.Envelope{}, err
	}
	return reply("CANCEL_ORDER", ok)
}

func (d *Dispatcher) handleAvailableTimes(ctx context.Context, env protocol.Envelope) (protocol.Envelope, error) {
	var req availableTimesRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	slots, err := d.engine.AvailableSlots(ctx, date, req.Guests)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_AVAILABLE_TIMES", slots)
}

func (d *Dispatcher) handleCreateOrder(ctx context.Context, env protocol.Envelope) (protocol.Envelope, error) {
	var req orderDraftRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	candidateTime, err := time.Parse(time.RFC3339, req.ScheduledTime)
	if err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	draft := domain.Order{Guests: req.Guests, MemberID: req.MemberID, Contact: req.Contact}
	now := timeutil.Now()
	order, decision, err := d.seating.Book(ctx, draft, candidateTime, now)
	if err != nil {
		return protocol.Envelope{}, err
	}
	if !decision.Approved {
		return reply("ORDER_ALTERNATIVES", decision.Alternatives)
	}
	return reply("CREATE_ORDER", order)
}

func (d *Dispatcher) handleEnterWaitlist(ctx context.Context, env protocol.Envelope) (protocol.Envelope, error) {
	var req orderDraftRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	draft := domain.Order{Guests: req.Guests, MemberID: req.MemberID, Contact: req.Contact}
	order, err := d.seating.WalkIn(ctx, draft, timeutil.Now())
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("ENTER_WAITLIST", order)
}

func (d *Dispatcher) handleLeaveWaitlist(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	var req codeRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	if _, err := d.requireOwnership(ctx, state, req); err != nil {
		return protocol.Envelope{}, err
	}
	if _, err := d.seating.LeaveWaitlist(ctx, req.ConfirmationCode, timeutil.Now()); err != nil {
		return protocol.Envelope{}, err
	}
	return reply("LEAVE_WAITLIST", ok)
}

func (d *Dispatcher) handleValidateArrival(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req codeRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	order, err := d.seating.Arrival(ctx, req.ConfirmationCode, timeutil.Now())
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("VALIDATE_ARRIVAL", order)
}

func (d *Dispatcher) handlePayBill(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req codeRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	var sessionUserID int64
	role := domain.RoleWorker
	if state.user != nil {
		sessionUserID, role = state.user.ID, state.user.Role
	}
	if _, err := d.seating.Pay(ctx, req.ConfirmationCode, sessionUserID, role, timeutil.Now()); err != nil {
		return protocol.Envelope{}, err
	}
	return reply("PAY_BILL", ok)
}

// sideEffectFreeTargets is the subset of domain.CanTransition's legal moves
// this bare status write is allowed to perform. SEATED/BILLED/COMPLETED all
// carry mandatory side effects (total-price calculation, table release,
// waitlist promotion — spec.md §4.3/§4.5) that only seating.Controller.Pay
// and Arrival apply; routing them through here would leave the table
// occupied with no order holding it (invariant T2/O2, property P1).
var sideEffectFreeTargets = map[domain.OrderStatus]bool{
	domain.StatusCancelled: true,
	domain.StatusNoShow:    true,
}

func (d *Dispatcher) handleUpdateOrderStatus(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req updateOrderStatusRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	if !sideEffectFreeTargets[req.Status] {
		return protocol.Envelope{}, berrors.ErrWrongState
	}
	order, err := d.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return protocol.Envelope{}, err
	}
	if !domain.CanTransition(order.Status, req.Status) {
		return protocol.Envelope{}, berrors.ErrWrongState
	}
	if err := d.orders.UpdateStatus(ctx, req.OrderID, req.Status); err != nil {
		return protocol.Envelope{}, err
	}
	return reply("UPDATE_ORDER_STATUS", ok)
}

func (d *Dispatcher) handleGetOpeningHours(ctx context.Context) (protocol.Envelope, error) {
	rules, err := d.hoursDB.List(ctx)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_OPENING_HOURS", rules)
}

func (d *Dispatcher) handleUpdateOpeningHours(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req openingHoursRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	openTime, err := time.Parse("15:04:05", req.OpenTime)
	if err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	closeTime, err := time.Parse("15:04:05", req.CloseTime)
	if err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	rule := domain.OpeningHours{DayOfWeek: req.DayOfWeek, OpenTime: openTime, CloseTime: closeTime, IsClosed: req.IsClosed}
	if req.SpecificDate != nil {
		date, parseErr := time.Parse("2006-01-02", *req.SpecificDate)
		if parseErr != nil {
			return protocol.Envelope{}, berrors.ErrInvalidInput
		}
		rule.SpecificDate = &date
	}
	if err := d.hoursDB.UpsertForDayOrDate(ctx, rule); err != nil {
		return protocol.Envelope{}, err
	}

	if rule.SpecificDate != nil {
		d.hoursCache.Invalidate(ctx, *rule.SpecificDate)
	} else {
		d.hoursCache.Flush()
	}

	cancelled, err := d.cancelOrdersNoLongerFeasible(ctx)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("UPDATE_OPENING_HOURS", fmt.Sprintf("%d order(s) cancelled", len(cancelled)))
}

// cancelOrdersNoLongerFeasible re-runs checkAvailability for every future
// PENDING/NOTIFIED order and cancels those that no longer fit, broadcasting
// a notification for each (spec.md §4.3's table, last row).
func (d *Dispatcher) cancelOrdersNoLongerFeasible(ctx context.Context) ([]int64, error) {
	now := timeutil.Now()
	candidates, err := d.orders.GetFutureActive(ctx, now)
	if err != nil {
		return nil, err
	}

	var cancelled []int64
	for _, o := range candidates {
		decision, checkErr := d.engine.CheckAvailability(ctx, o.ScheduledTime, o.Guests, o.ID)
		if checkErr != nil || !decision.Approved {
			cancelled = append(cancelled, o.ID)
		}
	}
	if err := d.orders.CancelConflictingOrders(ctx, cancelled); err != nil {
		return nil, err
	}
	for _, id := range cancelled {
		d.registry.Broadcast(notificationEnvelope("SERVER_NOTIFICATION", map[string]any{
			"subtype": "ORDER_CANCELLED",
			"orderId": id,
			"reason":  "schedule change",
		}))
	}
	return cancelled, nil
}

func notificationEnvelope(msgType string, data any) protocol.Envelope {
	env, err := protocol.NewEnvelope(msgType, data)
	if err != nil {
		return protocol.Envelope{Type: msgType}
	}
	return env
}

func (d *Dispatcher) handleGetAllTables(ctx context.Context) (protocol.Envelope, error) {
	tables, err := d.tables.List(ctx)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_ALL_TABLES", tables)
}

func (d *Dispatcher) handleAddTable(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req tableRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	if err := d.tables.Add(ctx, domain.Table{ID: req.ID, Capacity: req.Capacity, Status: domain.TableAvailable}); err != nil {
		return protocol.Envelope{}, err
	}
	return d.handleGetAllTables(ctx)
}

func (d *Dispatcher) handleRemoveTable(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req tableRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	if err := d.tables.DeleteSafely(ctx, req.ID); err != nil {
		return protocol.Envelope{}, err
	}
	return d.handleGetAllTables(ctx)
}

func (d *Dispatcher) handleUpdateTable(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req tableRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	if err := d.tables.UpdateCapacity(ctx, req.ID, req.Capacity); err != nil {
		return protocol.Envelope{}, err
	}
	if _, err := d.cancelOrdersNoLongerFeasible(ctx); err != nil && d.logger != nil {
		d.logger.Warn("dispatcher: feasibility recheck after table update failed", zap.Error(err))
	}
	return d.handleGetAllTables(ctx)
}

func (d *Dispatcher) handleGetActiveDiners(ctx context.Context, state *connState) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	orders, err := d.orders.GetActiveDiners(ctx)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_ACTIVE_DINERS", orders)
}

func (d *Dispatcher) handleGetAllActiveOrders(ctx context.Context, state *connState) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	orders, err := d.orders.GetAllActiveToday(ctx, timeutil.Now())
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_ALL_ACTIVE_ORDERS", orders)
}

func (d *Dispatcher) handleGetWaitingList(ctx context.Context, state *connState) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireStaff(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	orders, err := d.orders.GetWaitingList(ctx)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_WAITING_LIST", orders)
}

func (d *Dispatcher) handleGetRelevantOrders(ctx context.Context, state *connState) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrUnauthorized
	}
	orders, err := d.orders.GetRelevantOrdersForToday(ctx, state.user.ID, timeutil.Now())
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_RELEVANT_ORDERS", orders)
}

func (d *Dispatcher) handlePerformanceReport(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireManager(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req reportRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	report, err := d.reports.Performance(ctx, req.Month, req.Year)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_PERFORMANCE_REPORT", report)
}

func (d *Dispatcher) handleSubscriptionReport(ctx context.Context, state *connState, env protocol.Envelope) (protocol.Envelope, error) {
	if state.user == nil {
		return protocol.Envelope{}, berrors.ErrForbidden
	}
	if err := auth.RequireManager(*state.user); err != nil {
		return protocol.Envelope{}, err
	}
	var req reportRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	report, err := d.reports.Subscription(ctx, req.Month, req.Year)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return reply("GET_SUBSCRIPTION_REPORT", report)
}

func (d *Dispatcher) handleRestoreCode(ctx context.Context, env protocol.Envelope) (protocol.Envelope, error) {
	var req restoreCodeRequest
	if err := env.Into(&req); err != nil {
		return protocol.Envelope{}, berrors.ErrInvalidInput
	}
	if req.MembershipCode != nil {
		if _, err := d.users.GetByMembershipCode(ctx, *req.MembershipCode); err != nil {
			return protocol.Envelope{}, err
		}
		return reply("RESTORE_CODE", ok)
	}
	if _, err := d.orders.GetActiveByContact(ctx, req.Phone, req.Email); err == nil {
		return reply("RESTORE_CODE", ok)
	}
	if _, err := d.users.GetByContact(ctx, req.Phone, req.Email); err != nil {
		return protocol.Envelope{}, err
	}
	return reply("RESTORE_CODE", ok)
}

func (d *Dispatcher) handleLogout(ctx context.Context, state *connState) (protocol.Envelope, error) {
	if err := d.sessions.Logout(ctx, state.handle); err != nil {
		return protocol.Envelope{}, err
	}
	state.user = nil
	return reply("LOGOUT", ok)
}
