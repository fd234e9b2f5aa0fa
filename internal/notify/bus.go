// Package notify implements the Notification Bus of SPEC_FULL.md §4.6+: the
// scheduler and the seating/waitlist controller publish SERVER_NOTIFICATION
// envelopes on a single NATS core subject; the Client Registry is the sole
// subscriber and fans them out to connected terminals in delivery order.
// Core NATS (not JetStream) is sufficient here since there is exactly one
// publisher and one subscriber by construction (SPEC_FULL.md §4.6+).
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const subject = "bistro.notifications"

const (
	reconnectWait = 5 * time.Second
	maxReconnects = 10
	dialTimeout   = 5 * time.Second
)

// Notification is the payload broadcast to every connected terminal. Type
// mirrors one of the wire tags in spec.md §6.1 (e.g. "TABLE_READY",
// "SERVER_NOTIFICATION" subtypes); Data carries whatever the tag's contract
// requires.
type Notification struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Bus wraps a NATS connection dedicated to the single notifications
// subject. A nil *Bus is valid and turns Publish into a no-op, so callers
// never need a nil-check when NATS was unreachable at startup (SPEC_FULL.md
// §6: background consumers must not block the terminal-facing protocol).
type Bus struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// Dial connects to url. A connection failure is returned to the caller, who
// per SPEC_FULL.md §6 should log it and continue running with a nil *Bus.
func Dial(url string, logger *zap.Logger) (*Bus, error) {
	conn, err := nats.Connect(url,
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.Timeout(dialTimeout),
	)
	if err != nil {
		return nil, err
	}
	return &Bus{conn: conn, logger: logger}, nil
}

// Publish broadcasts n on the notifications subject. Failures are logged,
// never returned — notification delivery is best-effort relative to the
// authoritative Postgres transition that triggered it (SPEC_FULL.md §4.5+).
func (b *Bus) Publish(ctx context.Context, n Notification) {
	if b == nil || b.conn == nil {
		return
	}
	body, err := json.Marshal(n)
	if err != nil {
		if b.logger != nil {
			b.logger.Warn("notify: marshal failed", zap.Error(err), zap.String("type", n.Type))
		}
		return
	}
	if err := b.conn.Publish(subject, body); err != nil && b.logger != nil {
		b.logger.Warn("notify: publish failed", zap.Error(err), zap.String("type", n.Type))
	}
}

// Subscribe registers handler for every Notification published to the
// shared subject, used by the Client Registry (component H) to fan out to
// connected terminals. Returns a nil subscription when the bus itself is
// nil (NATS unreachable) — the registry simply never receives broadcasts.
func (b *Bus) Subscribe(handler func(Notification)) (*nats.Subscription, error) {
	if b == nil || b.conn == nil {
		return nil, nil
	}
	return b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var n Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			if b.logger != nil {
				b.logger.Warn("notify: unmarshal failed", zap.Error(err))
			}
			return
		}
		handler(n)
	})
}

// Close releases the underlying NATS connection.
func (b *Bus) Close() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}
