package rates

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"valutahub/internal/errs"
	"valutahub/internal/metrics"
	"valutahub/internal/models"
	"valutahub/internal/storage"
)

// Refresher produces a fresh snapshot from external sources.
type Refresher interface {
	Refresh(ctx context.Context, sourceFilter string) (models.RateSnapshot, error)
}

// Broadcaster is notified after every successful refresh.
type Broadcaster interface {
	BroadcastRates(lastRefresh time.Time, source string, pairs int)
}

// Cache owns the authoritative snapshot. One mutex guards the whole
// check-then-refresh-then-store sequence, so concurrent readers observe
// either the pre-refresh or the post-refresh snapshot, never a half-written
// one.
type Cache struct {
	mu        sync.Mutex
	store     storage.Store
	refresher Refresher
	ttl       time.Duration
	log       zerolog.Logger

	snapshot models.RateSnapshot
	loaded   bool

	hub Broadcaster
	now func() time.Time
}

func NewCache(store storage.Store, refresher Refresher, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		store:     store,
		refresher: refresher,
		ttl:       ttl,
		log:       log,
		now:       time.Now,
	}
}

// SetBroadcaster wires an optional refresh listener.
func (c *Cache) SetBroadcaster(hub Broadcaster) { c.hub = hub }

// SetClock replaces the time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

// Snapshot returns the cached snapshot, refreshing it first when it is empty
// or older than the TTL. A rate is never handed out past its freshness
// window: when the refresh fails the error propagates, even if an expired
// snapshot is still cached. The expired snapshot stays in memory and on disk
// so a later successful filtered refresh can merge over it.
func (c *Cache) Snapshot(ctx context.Context) (models.RateSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoadedLocked(ctx); err != nil {
		return models.RateSnapshot{}, err
	}
	if !c.expiredLocked() {
		return c.snapshot.Clone(), nil
	}
	if _, err := c.refreshLocked(ctx, ""); err != nil {
		c.log.Error().Err(err).Time("last_refresh", c.snapshot.LastRefresh).
			Msg("refresh failed, cached snapshot is expired")
		return models.RateSnapshot{}, err
	}
	return c.snapshot.Clone(), nil
}

// PairRate resolves from→to through the current snapshot: direct FROM_TO
// first, then the reciprocal of TO_FROM. The returned timestamp is the
// snapshot's LastRefresh, the single freshness authority.
func (c *Cache) PairRate(ctx context.Context, from, to string) (decimal.Decimal, time.Time, error) {
	snapshot, err := c.Snapshot(ctx)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	if pair, ok := snapshot.Pairs[models.PairKey(from, to)]; ok {
		return pair.Rate, snapshot.LastRefresh, nil
	}
	if inverse, ok := snapshot.Pairs[models.PairKey(to, from)]; ok && inverse.Rate.IsPositive() {
		return decimal.NewFromInt(1).Div(inverse.Rate), snapshot.LastRefresh, nil
	}
	return decimal.Zero, time.Time{}, errs.RateUnavailable(from, to)
}

// ForceRefresh bypasses the TTL check unconditionally. On failure the
// previous snapshot stays cached, usable until its own expiry; the error is
// returned so the caller can retry.
func (c *Cache) ForceRefresh(ctx context.Context, sourceFilter string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoadedLocked(ctx); err != nil {
		return 0, err
	}
	return c.refreshLocked(ctx, sourceFilter)
}

func (c *Cache) expiredLocked() bool {
	if c.snapshot.Empty() {
		return true
	}
	return c.now().Sub(c.snapshot.LastRefresh) > c.ttl
}

// ensureLoadedLocked pulls the persisted snapshot once per process so a
// restart does not force an immediate refetch.
func (c *Cache) ensureLoadedLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	snapshot, err := c.store.LoadRates(ctx)
	if err != nil {
		return err
	}
	c.snapshot = snapshot
	c.loaded = true
	metrics.CachedPairs.Set(float64(len(snapshot.Pairs)))
	return nil
}

// refreshLocked replaces the cached snapshot only after both the refresh and
// persistence succeed, then appends the audit history.
func (c *Cache) refreshLocked(ctx context.Context, sourceFilter string) (int, error) {
	fresh, err := c.refresher.Refresh(ctx, sourceFilter)
	if err != nil {
		return 0, err
	}

	// A filtered refresh updates a subset; merge it over the pairs the
	// other sources contributed earlier.
	merged := fresh
	if sourceFilter != "" && !c.snapshot.Empty() {
		merged = c.snapshot.Clone()
		for key, pair := range fresh.Pairs {
			merged.Pairs[key] = pair
		}
		merged.LastRefresh = fresh.LastRefresh
		merged.Source = fresh.Source
	}

	if err := c.store.SaveRates(ctx, merged); err != nil {
		return 0, err
	}
	records := make([]models.RateHistoryRecord, 0, len(fresh.Pairs))
	for _, pair := range fresh.Pairs {
		records = append(records, models.RateHistoryRecord{
			ID:        uuid.NewString(),
			From:      pair.From,
			To:        pair.To,
			Rate:      pair.Rate,
			Timestamp: pair.UpdatedAt,
			Source:    pair.Source,
		})
	}
	if err := c.store.AppendRateHistory(ctx, records); err != nil {
		return 0, err
	}

	c.snapshot = merged
	metrics.CachedPairs.Set(float64(len(merged.Pairs)))
	c.log.Info().Int("pairs", len(fresh.Pairs)).Str("source", fresh.Source).Msg("rate snapshot refreshed")
	if c.hub != nil {
		c.hub.BroadcastRates(merged.LastRefresh, fresh.Source, len(fresh.Pairs))
	}
	return len(fresh.Pairs), nil
}
