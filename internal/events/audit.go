package events

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bistro-server/internal/domain"
)

const auditCollection = "order_audit"

// AuditEvent is one append-only document per order transition (SPEC_FULL.md
// §3+). Actor is a user id, or 0 for system-driven transitions (scheduler).
type AuditEvent struct {
	OrderID    int64             `bson:"order_id"`
	FromStatus domain.OrderStatus `bson:"from_status"`
	ToStatus   domain.OrderStatus `bson:"to_status"`
	Actor      int64             `bson:"actor"`
	OccurredAt time.Time         `bson:"occurred_at"`
	Detail     string            `bson:"detail,omitempty"`
}

// AuditLog records order transitions to Mongo. A nil *AuditLog is valid and
// makes Record a no-op.
type AuditLog struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// DialAuditLog connects to uri and returns an AuditLog bound to dbName's
// order_audit collection.
func DialAuditLog(ctx context.Context, uri, dbName string, logger *zap.Logger) (*AuditLog, func(context.Context), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	closer := func(ctx context.Context) { _ = client.Disconnect(ctx) }
	return &AuditLog{coll: client.Database(dbName).Collection(auditCollection), logger: logger}, closer, nil
}

// Record appends one transition document, best-effort (SPEC_FULL.md §4.5+ —
// failure is logged, never blocks or fails the caller's transition).
func (a *AuditLog) Record(ctx context.Context, orderID int64, from, to domain.OrderStatus, actor int64, detail string, now time.Time) {
	if a == nil || a.coll == nil {
		return
	}
	doc := AuditEvent{OrderID: orderID, FromStatus: from, ToStatus: to, Actor: actor, OccurredAt: now, Detail: detail}
	if _, err := a.coll.InsertOne(ctx, bson.M{
		"order_id": doc.OrderID, "from_status": doc.FromStatus, "to_status": doc.ToStatus,
		"actor": doc.Actor, "occurred_at": doc.OccurredAt, "detail": doc.Detail,
	}); err != nil && a.logger != nil {
		a.logger.Warn("audit log: insert failed", zap.Error(err), zap.Int64("order_id", orderID))
	}
}
