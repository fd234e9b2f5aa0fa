// Package pool implements the bounded connection pool of spec.md §4.1: a
// queue of at most N reusable *pgx.Conn handles guarding Postgres, with
// overflow-then-close semantics and a FIFO-preserving idle evictor. This is
// deliberately not pgxpool.Pool — the spec requires the bounded-queue and
// eviction mechanics to be owned by this implementation.
package pool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bistro-server/internal/metrics"
	"bistro-server/pkg/constants"
	berrors "bistro-server/pkg/errors"
)

// handle wraps a physical connection with its last-used timestamp, the unit
// the evictor inspects.
type handle struct {
	conn     *pgx.Conn
	lastUsed time.Time
}

// Pool is a bounded queue of Postgres handles. Size is the FIFO capacity
// (default constants.DefaultPoolSize); callers may still acquire beyond it
// — those overflow handles are physically closed on release instead of
// being re-queued.
type Pool struct {
	dsn    string
	size   int
	logger *zap.Logger

	mu    sync.Mutex
	queue []*handle

	outstanding int64 // handles currently acquired and not yet released
	overflowCnt int64 // cumulative count of overflow opens, for metrics

	closed   chan struct{}
	closeOne sync.Once
}

// New creates a Pool bound to dsn with the given bounded size. It does not
// open any connections eagerly; the first acquire() opens the first handle.
func New(dsn string, size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = constants.DefaultPoolSize
	}
	return &Pool{
		dsn:    dsn,
		size:   size,
		logger: logger,
		queue:  make([]*handle, 0, size),
		closed: make(chan struct{}),
	}
}

// TestOpen opens and immediately closes one physical handle, used at
// startup to fail fast on bad credentials (spec.md §6.3).
func (p *Pool) TestOpen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return berrors.ErrDatabase.Wrap(fmt.Errorf("test open: %w", err))
	}
	return conn.Close(ctx)
}

// Acquire pops a queued handle if one is available, touching its last-used
// time; otherwise it opens a new physical handle (overflow). It returns
// ErrPoolExhausted only when the physical open itself fails.
func (p *Pool) Acquire(ctx context.Context) (*pgx.Conn, error) {
	p.mu.Lock()
	if len(p.queue) > 0 {
		h := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		atomic.AddInt64(&p.outstanding, 1)
		metrics.PoolOutstanding.Set(float64(atomic.LoadInt64(&p.outstanding)))
		h.lastUsed = time.Now()
		return h.conn, nil
	}
	p.mu.Unlock()

	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return nil, berrors.ErrPoolExhausted.Wrap(err)
	}
	atomic.AddInt64(&p.outstanding, 1)
	metrics.PoolOutstanding.Set(float64(atomic.LoadInt64(&p.outstanding)))
	return conn, nil
}

// Release returns a handle to the pool, touching its last-used time. If the
// queue is already at capacity the handle is an overflow handle and is
// physically closed instead of being re-queued.
func (p *Pool) Release(ctx context.Context, conn *pgx.Conn) {
	atomic.AddInt64(&p.outstanding, -1)
	metrics.PoolOutstanding.Set(float64(atomic.LoadInt64(&p.outstanding)))

	p.mu.Lock()
	if len(p.queue) < p.size {
		p.queue = append(p.queue, &handle{conn: conn, lastUsed: time.Now()})
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	atomic.AddInt64(&p.overflowCnt, 1)
	metrics.PoolOverflowTotal.Inc()
	if err := conn.Close(ctx); err != nil && p.logger != nil {
		p.logger.Warn("pool: close overflow handle failed", zap.Error(err))
	}
}

// StartEvictor launches the background eviction goroutine: every
// constants.PoolEvictorInterval, it drains the queue, closes handles idle
// longer than constants.PoolIdleThreshold, and re-enqueues the rest in
// their original order (FIFO fairness per spec.md §4.1). It stops when ctx
// is cancelled or Close is called.
func (p *Pool) StartEvictor(ctx context.Context) {
	ticker := time.NewTicker(constants.PoolEvictorInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.closed:
				return
			case <-ticker.C:
				p.evictOnce(ctx)
			}
		}
	}()
}

func (p *Pool) evictOnce(ctx context.Context) {
	p.mu.Lock()
	drained := p.queue
	p.queue = make([]*handle, 0, p.size)
	p.mu.Unlock()

	now := time.Now()
	kept := make([]*handle, 0, len(drained))
	for _, h := range drained {
		if now.Sub(h.lastUsed) > constants.PoolIdleThreshold {
			if err := h.conn.Close(ctx); err != nil && p.logger != nil {
				p.logger.Warn("pool: evict close failed", zap.Error(err))
			}
			continue
		}
		kept = append(kept, h)
	}

	p.mu.Lock()
	// Re-offer survivors ahead of anything released while we were
	// evicting, preserving the drained FIFO order.
	p.queue = append(kept, p.queue...)
	p.mu.Unlock()
}

// Close stops the evictor and closes every currently queued handle. It does
// not wait for outstanding (acquired) handles to be released.
func (p *Pool) Close(ctx context.Context) {
	p.closeOne.Do(func() { close(p.closed) })

	p.mu.Lock()
	queue := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, h := range queue {
		if err := h.conn.Close(ctx); err != nil && p.logger != nil {
			p.logger.Warn("pool: close on shutdown failed", zap.Error(err))
		}
	}
}

// Stats is a point-in-time snapshot of the queue and counters. The
// Prometheus collectors in internal/metrics are updated directly by Acquire
// and Release, not from Stats.
type Stats struct {
	Queued      int
	Outstanding int64
	Overflows   int64
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	queued := len(p.queue)
	p.mu.Unlock()
	return Stats{
		Queued:      queued,
		Outstanding: atomic.LoadInt64(&p.outstanding),
		Overflows:   atomic.LoadInt64(&p.overflowCnt),
	}
}

// SanitizeDSN masks credentials in a Postgres DSN for logging, mirroring
// the sibling project's pkg/store connector.
func SanitizeDSN(dsn string) string {
	idx := strings.Index(dsn, "://")
	if idx < 0 {
		return dsn
	}
	rest := dsn[idx+3:]
	at := strings.Index(rest, "@")
	if at < 0 {
		return dsn
	}
	return dsn[:idx+3] + "***" + rest[at:]
}
