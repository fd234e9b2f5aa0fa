// Package events implements the two best-effort side channels of
// SPEC_FULL.md §4.5+: a RabbitMQ order-event outbox and a Mongo audit log.
// Neither backs any invariant in spec.md §8 — both exist purely so a
// downstream consumer or an operator can observe the order lifecycle
// without querying Postgres directly, matching the sibling project's
// pattern of independent outbound channels beside the authoritative write.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"bistro-server/internal/domain"
)

const exchangeName = "orders.events"

// OrderEvent is the body published to the outbox exchange, routed by the
// order's new status.
type OrderEvent struct {
	OrderID    int64             `json:"orderId"`
	FromStatus domain.OrderStatus `json:"fromStatus"`
	ToStatus   domain.OrderStatus `json:"toStatus"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Outbox publishes lifecycle events to a topic exchange, routing key = new
// status. A nil *Outbox is valid and makes Publish a no-op (RabbitMQ
// unreachable at startup must not block the terminal-facing protocol).
type Outbox struct {
	channel *amqp.Channel
	logger  *zap.Logger
}

// DialOutbox connects to url and declares the durable topic exchange.
func DialOutbox(url string, logger *zap.Logger) (*Outbox, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if err := ch.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	closer := func() {
		ch.Close()
		conn.Close()
	}
	return &Outbox{channel: ch, logger: logger}, closer, nil
}

// Publish fire-and-forgets an order transition event. Failures are logged,
// never returned (SPEC_FULL.md §4.5+ — the outbox is not part of any
// invariant).
func (o *Outbox) Publish(ctx context.Context, orderID int64, from, to domain.OrderStatus, now time.Time) {
	if o == nil || o.channel == nil {
		return
	}
	body, err := json.Marshal(OrderEvent{OrderID: orderID, FromStatus: from, ToStatus: to, OccurredAt: now})
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("outbox: marshal failed", zap.Error(err), zap.Int64("order_id", orderID))
		}
		return
	}
	err = o.channel.PublishWithContext(ctx, exchangeName, string(to), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   now,
	})
	if err != nil && o.logger != nil {
		o.logger.Warn("outbox: publish failed", zap.Error(err), zap.Int64("order_id", orderID))
	}
}
