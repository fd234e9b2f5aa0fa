// Package registry implements the Client Registry of spec.md §4 (component
// H): it tracks every connected terminal and fans scheduler/controller
// notifications out to all of them in delivery order (spec.md §5's ordering
// guarantee), while serializing each connection's own writes so concurrent
// replies and broadcasts never interleave mid-envelope.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"bistro-server/internal/domain"
	"bistro-server/internal/metrics"
	"bistro-server/internal/notify"
	"bistro-server/internal/protocol"
)

// Conn is one registered connection: an io.Writer guarded by its own mutex
// so a broadcast and a reply destined for the same socket never race.
type Conn struct {
	handle domain.ConnectionHandle
	mu     sync.Mutex
	writer writer
}

// writer is the subset of net.Conn the registry needs; satisfied directly
// by net.Conn in the dispatcher, and by any io.Writer in tests.
type writer interface {
	Write(p []byte) (int, error)
}

// Send writes env to this connection under its own write-lock, so it is
// safe to call from both the dispatcher's reply path and the registry's
// broadcast path concurrently (spec.md §5's per-connection ordering is
// preserved because both paths share this one lock per connection).
func (c *Conn) Send(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.WriteEnvelope(c.writer, env)
}

// Registry is the connected-clients map guarded by a single mutex; broadcast
// takes a snapshot copy before writing so slow or blocked connections never
// hold up registration/deregistration of others (spec.md §5).
type Registry struct {
	mu      sync.Mutex
	clients map[domain.ConnectionHandle]*Conn
	bus     *notify.Bus
	logger  *zap.Logger
}

// New builds a Registry and, when bus is non-nil, subscribes it to the
// Notification Bus for the lifetime of the process.
func New(bus *notify.Bus, logger *zap.Logger) *Registry {
	r := &Registry{clients: make(map[domain.ConnectionHandle]*Conn), bus: bus, logger: logger}
	if _, err := bus.Subscribe(r.onNotification); err != nil && logger != nil {
		logger.Warn("registry: notification subscribe failed", zap.Error(err))
	}
	return r
}

// Register binds handle to w, replacing any prior connection under the same
// handle (the dispatcher only calls this once per accepted socket, but a
// reconnect under a reused handle is handled gracefully rather than leaking).
func (r *Registry) Register(handle domain.ConnectionHandle, w writer) *Conn {
	conn := &Conn{handle: handle, writer: w}
	r.mu.Lock()
	r.clients[handle] = conn
	n := len(r.clients)
	r.mu.Unlock()
	metrics.RegistryConnectedClients.Set(float64(n))
	return conn
}

// Deregister removes handle, called when the connection's read loop exits.
func (r *Registry) Deregister(handle domain.ConnectionHandle) {
	r.mu.Lock()
	delete(r.clients, handle)
	n := len(r.clients)
	r.mu.Unlock()
	metrics.RegistryConnectedClients.Set(float64(n))
}

// Broadcast sends env to every registered connection. It snapshots the
// client list under the map lock, then writes outside it, so one slow
// connection can't stall Register/Deregister for the rest.
func (r *Registry) Broadcast(env protocol.Envelope) {
	r.mu.Lock()
	snapshot := make([]*Conn, 0, len(r.clients))
	for _, c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.Unlock()

	for _, c := range snapshot {
		if err := c.Send(env); err != nil && r.logger != nil {
			r.logger.Warn("registry: broadcast write failed", zap.Error(err), zap.String("handle", string(c.handle)))
		}
	}
}

// onNotification is the Notification Bus's single subscriber callback: it
// re-wraps the payload as a wire envelope and broadcasts it to every
// connected terminal, preserving the scheduler's emission order (spec.md §5).
func (r *Registry) onNotification(n notify.Notification) {
	env, err := protocol.NewEnvelope(n.Type, n.Data)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("registry: encode notification failed", zap.Error(err), zap.String("type", n.Type))
		}
		return
	}
	r.Broadcast(env)
}

// Count reports the number of currently-registered connections. The
// connected-clients gauge is set by Register and Deregister, not from Count.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
