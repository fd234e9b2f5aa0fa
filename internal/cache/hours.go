// Package cache implements the two-tier Hours Cache described in
// SPEC_FULL.md §4.4+: an in-process patrickmn/go-cache L1 in front of a
// redis/go-redis/v9 L2, in front of Postgres. This mirrors the sibling
// project's author/book cache-aside pattern (internal/cache/redis), widened
// to two tiers because the opening-hours lookup sits on every
// checkAvailability call (spec.md §4.4) and is read far more than written.
package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bistro-server/internal/domain"
	"bistro-server/pkg/constants"
)

// HoursLoader fetches the effective rule for a date when neither cache tier
// has it; normally internal/repository/postgres.HoursRepository.GetForDate.
type HoursLoader func(ctx context.Context, date time.Time) (domain.OpeningHours, error)

// HoursCache fronts a HoursLoader with L1 (process-local, 60s TTL) and L2
// (Redis, 5min TTL) tiers, cache-aside style: a miss at both tiers falls
// through to the loader and populates both tiers on the way back.
type HoursCache struct {
	l1     *gocache.Cache
	l2     *redis.Client
	load   HoursLoader
	logger *zap.Logger
}

// New builds a HoursCache. l2 may be nil (e.g. Redis unreachable at
// startup) — the cache then runs L1-only, which SPEC_FULL.md §4.4+ treats
// as a degraded-but-correct mode, not a SystemError.
func New(l2 *redis.Client, load HoursLoader, logger *zap.Logger) *HoursCache {
	return &HoursCache{
		l1:     gocache.New(constants.HoursCacheL1TTL, 2*constants.HoursCacheL1TTL),
		l2:     l2,
		load:   load,
		logger: logger,
	}
}

func cacheKey(date time.Time) string {
	return "hours:" + date.Format("2006-01-02")
}

// GetForDate returns the effective opening-hours rule for date, consulting
// L1 then L2 then the loader. Any cache-tier error falls through to the
// next tier; a cache outage is never surfaced as a SystemError here —
// SPEC_FULL.md §4.4+ only escalates when Postgres itself is unavailable,
// which the loader itself reports.
func (c *HoursCache) GetForDate(ctx context.Context, date time.Time) (domain.OpeningHours, error) {
	key := cacheKey(date)

	if cached, ok := c.l1.Get(key); ok {
		if hours, ok := cached.(domain.OpeningHours); ok {
			return hours, nil
		}
	}

	if c.l2 != nil {
		if raw, err := c.l2.Get(ctx, key).Result(); err == nil {
			var hours domain.OpeningHours
			if jsonErr := json.Unmarshal([]byte(raw), &hours); jsonErr == nil {
				c.l1.SetDefault(key, hours)
				return hours, nil
			}
		} else if err != redis.Nil && c.logger != nil {
			c.logger.Warn("hours cache: redis get failed", zap.Error(err))
		}
	}

	hours, err := c.load(ctx, date)
	if err != nil {
		return domain.OpeningHours{}, err
	}

	c.l1.SetDefault(key, hours)
	if c.l2 != nil {
		if raw, marshalErr := json.Marshal(hours); marshalErr == nil {
			if setErr := c.l2.Set(ctx, key, raw, constants.HoursCacheL2TTL).Err(); setErr != nil && c.logger != nil {
				c.logger.Warn("hours cache: redis set failed", zap.Error(setErr))
			}
		}
	}

	return hours, nil
}

// Invalidate drops both tiers' entries for date, called synchronously
// whenever UPDATE_OPENING_HOURS commits a change for that date
// (SPEC_FULL.md §4.4+). A day-of-week change calls Flush instead, which
// clears L1 only; L2 entries for the affected dates keep the old rule until
// their own TTL expires.
func (c *HoursCache) Invalidate(ctx context.Context, date time.Time) {
	c.l1.Delete(cacheKey(date))
	if c.l2 != nil {
		if err := c.l2.Del(ctx, cacheKey(date)).Err(); err != nil && c.logger != nil {
			c.logger.Warn("hours cache: redis invalidate failed", zap.Error(err))
		}
	}
}

// Flush clears the entire L1 tier, used when a day-of-week rule changes
// (affecting every future date that maps to it).
func (c *HoursCache) Flush() {
	c.l1.Flush()
}
