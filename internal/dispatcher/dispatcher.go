// Package dispatcher implements the Message Dispatcher of spec.md §4
// (component G): decode envelope, authorize, route to the reservation,
// seating, session, and repository components, encode the response. One
// goroutine per connection decodes and replies in the order requests
// arrive (spec.md §5's per-connection ordering guarantee); broadcasts are
// delivered independently by the Client Registry.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bistro-server/internal/auth"
	"bistro-server/internal/cache"
	"bistro-server/internal/domain"
	"bistro-server/internal/metrics"
	"bistro-server/internal/protocol"
	"bistro-server/internal/registry"
	"bistro-server/internal/reports"
	"bistro-server/internal/repository/postgres"
	"bistro-server/internal/reservation"
	"bistro-server/internal/seating"
	berrors "bistro-server/pkg/errors"
)

// Dispatcher wires every component the wire protocol can reach.
type Dispatcher struct {
	sessions   *auth.Manager
	seating    *seating.Controller
	engine     *reservation.Engine
	orders     *postgres.OrderRepository
	tables     *postgres.TableRepository
	hoursDB    *postgres.HoursRepository
	hoursCache *cache.HoursCache
	users      *postgres.UserRepository
	reports    *reports.Store
	registry   *registry.Registry
	logger     *zap.Logger
}

// New builds a Dispatcher.
func New(
	sessions *auth.Manager,
	seatingCtl *seating.Controller,
	engine *reservation.Engine,
	orders *postgres.OrderRepository,
	tables *postgres.TableRepository,
	hoursDB *postgres.HoursRepository,
	hoursCache *cache.HoursCache,
	users *postgres.UserRepository,
	reportsStore *reports.Store,
	reg *registry.Registry,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		sessions:   sessions,
		seating:    seatingCtl,
		engine:     engine,
		orders:     orders,
		tables:     tables,
		hoursDB:    hoursDB,
		hoursCache: hoursCache,
		users:      users,
		reports:    reportsStore,
		registry:   reg,
		logger:     logger,
	}
}

// connState tracks the per-connection authentication state the dispatcher
// consults for authorization (spec.md §4.9).
type connState struct {
	handle domain.ConnectionHandle
	user   *domain.User
}

// HandleConnection runs the read-decode-dispatch-reply loop for one accepted
// socket until it errs or the client disconnects, then deregisters it and
// clears its session (spec.md §6.1/§4.9).
func (d *Dispatcher) HandleConnection(ctx context.Context, conn net.Conn) {
	handle := domain.ConnectionHandle(uuid.NewString())
	state := &connState{handle: handle}
	regConn := d.registry.Register(handle, conn)

	defer func() {
		d.registry.Deregister(handle)
		if logoutErr := d.sessions.Logout(ctx, handle); logoutErr != nil && d.logger != nil {
			d.logger.Warn("dispatcher: logout on disconnect failed", zap.Error(logoutErr), zap.String("handle", string(handle)))
		}
		_ = conn.Close()
	}()

	for {
		env, err := protocol.ReadEnvelope(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && d.logger != nil {
				d.logger.Debug("dispatcher: connection read ended", zap.Error(err), zap.String("handle", string(handle)))
			}
			return
		}

		reply := d.dispatch(ctx, state, env)
		if err := regConn.Send(reply); err != nil {
			if d.logger != nil {
				d.logger.Debug("dispatcher: reply write failed", zap.Error(err), zap.String("handle", string(handle)))
			}
			return
		}

		if env.Type == "CLIENT_QUIT" {
			return
		}
	}
}

// dispatch routes one envelope to its handler and converts any error into
// the ERROR envelope the wire contract uses for failure responses.
func (d *Dispatcher) dispatch(ctx context.Context, state *connState, env protocol.Envelope) protocol.Envelope {
	start := time.Now()
	reply, err := d.route(ctx, state, env)
	metrics.DispatcherRequestSeconds.WithLabelValues(env.Type).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DispatcherRequestsTotal.WithLabelValues(env.Type, "error").Inc()
		return errorEnvelope(err)
	}
	metrics.DispatcherRequestsTotal.WithLabelValues(env.Type, "ok").Inc()
	return reply
}

func errorEnvelope(err error) protocol.Envelope {
	var domainErr *berrors.Error
	if errors.As(err, &domainErr) {
		raw, _ := json.Marshal(domainErr)
		return protocol.Envelope{Type: "ERROR", Data: raw}
	}
	raw, _ := json.Marshal(berrors.ErrInternal)
	return protocol.Envelope{Type: "ERROR", Data: raw}
}

func reply(msgType string, data any) (protocol.Envelope, error) {
	return protocol.NewEnvelope(msgType, data)
}
