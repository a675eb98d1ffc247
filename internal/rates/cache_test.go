package rates

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"valutahub/internal/errs"
	"valutahub/internal/models"
	"valutahub/internal/storage/memory"
)

type stubRefresher struct {
	snapshot models.RateSnapshot
	err      error
	calls    int
	filters  []string
}

func (s *stubRefresher) Refresh(_ context.Context, sourceFilter string) (models.RateSnapshot, error) {
	s.calls++
	s.filters = append(s.filters, sourceFilter)
	if s.err != nil {
		return models.RateSnapshot{}, s.err
	}
	return s.snapshot.Clone(), nil
}

func snapshotAt(t time.Time, pairs map[string]string) models.RateSnapshot {
	snapshot := models.RateSnapshot{Pairs: make(map[string]models.RatePair), LastRefresh: t, Source: "test"}
	for key, rate := range pairs {
		from, to, _ := models.SplitPairKey(key)
		snapshot.Pairs[key] = models.RatePair{
			From: from, To: to,
			Rate:      decimal.RequireFromString(rate),
			UpdatedAt: t,
			Source:    "test",
		}
	}
	return snapshot
}

func newTestCache(t *testing.T, refresher Refresher, ttl time.Duration) (*Cache, *memory.Store) {
	t.Helper()
	store := memory.New()
	cache := NewCache(store, refresher, ttl, zerolog.Nop())
	return cache, store
}

func TestSnapshotRespectsTTL(t *testing.T) {
	refreshedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	refresher := &stubRefresher{snapshot: snapshotAt(refreshedAt, map[string]string{"BTC_USD": "60000"})}
	cache, _ := newTestCache(t, refresher, 300*time.Second)

	now := refreshedAt
	cache.SetClock(func() time.Time { return now })

	// Empty cache triggers the first refresh.
	if _, err := cache.Snapshot(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected 1 refresh, got %d", refresher.calls)
	}

	now = refreshedAt.Add(299 * time.Second)
	if _, err := cache.Snapshot(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("refresh fired inside TTL window: %d calls", refresher.calls)
	}

	now = refreshedAt.Add(301 * time.Second)
	if _, err := cache.Snapshot(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refresher.calls != 2 {
		t.Fatalf("expected exactly one more refresh, got %d total", refresher.calls)
	}
}

func TestPairRateReciprocalFallback(t *testing.T) {
	refreshedAt := time.Now().UTC()
	refresher := &stubRefresher{snapshot: snapshotAt(refreshedAt, map[string]string{"EUR_USD": "1.08"})}
	cache, _ := newTestCache(t, refresher, time.Hour)

	rate, _, err := cache.PairRate(context.Background(), "USD", "EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := decimal.NewFromInt(1).Div(decimal.RequireFromString("1.08"))
	if !rate.Equal(expected) {
		t.Fatalf("expected %s, got %s", expected, rate)
	}
	product := rate.Mul(decimal.RequireFromString("1.08"))
	if product.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(decimal.RequireFromString("0.0000000001")) {
		t.Fatalf("rate and reciprocal do not multiply to 1: %s", product)
	}
}

func TestPairRateUnavailable(t *testing.T) {
	refresher := &stubRefresher{snapshot: snapshotAt(time.Now().UTC(), map[string]string{"BTC_USD": "60000"})}
	cache, _ := newTestCache(t, refresher, time.Hour)

	_, _, err := cache.PairRate(context.Background(), "ETH", "EUR")
	if errs.KindOf(err) != errs.KindRateUnavailable {
		t.Fatalf("expected RateUnavailable, got %v", err)
	}
}

func TestForceRefreshBypassesTTLAndKeepsPreviousOnFailure(t *testing.T) {
	refreshedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	refresher := &stubRefresher{snapshot: snapshotAt(refreshedAt, map[string]string{"BTC_USD": "60000"})}
	cache, _ := newTestCache(t, refresher, time.Hour)
	cache.SetClock(func() time.Time { return refreshedAt })

	count, err := cache.ForceRefresh(context.Background(), "")
	if err != nil || count != 1 {
		t.Fatalf("unexpected result: %d %v", count, err)
	}
	// Fresh snapshot, TTL not expired, yet a second force refresh still runs.
	if _, err := cache.ForceRefresh(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refresher.calls != 2 {
		t.Fatalf("force refresh did not bypass TTL: %d calls", refresher.calls)
	}

	refresher.err = errs.AllSourcesUnavailable()
	if _, err := cache.ForceRefresh(context.Background(), ""); errs.KindOf(err) != errs.KindAllSourcesUnavailable {
		t.Fatalf("expected AllSourcesUnavailable, got %v", err)
	}
	// The previous snapshot stays cached and, within its TTL, usable.
	rate, _, err := cache.PairRate(context.Background(), "BTC", "USD")
	if err != nil {
		t.Fatalf("previous snapshot unusable: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("60000")) {
		t.Fatalf("unexpected rate: %s", rate)
	}
}

func TestExpiredSnapshotNotServedWhenSourcesDown(t *testing.T) {
	refreshedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	refresher := &stubRefresher{snapshot: snapshotAt(refreshedAt, map[string]string{"BTC_USD": "60000"})}
	cache, _ := newTestCache(t, refresher, 300*time.Second)
	now := refreshedAt
	cache.SetClock(func() time.Time { return now })

	if _, _, err := cache.PairRate(context.Background(), "BTC", "USD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Well past the TTL with every source down: the expired rate must not
	// price anything, however recent the last snapshot was.
	now = refreshedAt.Add(time.Hour)
	refresher.err = errs.AllSourcesUnavailable()
	if _, _, err := cache.PairRate(context.Background(), "BTC", "USD"); errs.KindOf(err) != errs.KindAllSourcesUnavailable {
		t.Fatalf("expired rate served, expected AllSourcesUnavailable, got %v", err)
	}
	if _, err := cache.Snapshot(context.Background()); errs.KindOf(err) != errs.KindAllSourcesUnavailable {
		t.Fatalf("expired snapshot served, expected AllSourcesUnavailable, got %v", err)
	}

	// The expired snapshot stayed cached; once sources recover the next
	// lookup refreshes and serves fresh rates again.
	refresher.err = nil
	refresher.snapshot = snapshotAt(now, map[string]string{"BTC_USD": "61000"})
	rate, _, err := cache.PairRate(context.Background(), "BTC", "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("61000")) {
		t.Fatalf("unexpected rate after recovery: %s", rate)
	}
}

func TestForceRefreshPassesFilter(t *testing.T) {
	refresher := &stubRefresher{snapshot: snapshotAt(time.Now().UTC(), map[string]string{"BTC_USD": "60000"})}
	cache, _ := newTestCache(t, refresher, time.Hour)

	if _, err := cache.ForceRefresh(context.Background(), "coingecko"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refresher.filters) != 1 || refresher.filters[0] != "coingecko" {
		t.Fatalf("filter not forwarded: %v", refresher.filters)
	}
}

func TestRefreshPersistsSnapshotAndHistory(t *testing.T) {
	refreshedAt := time.Now().UTC()
	refresher := &stubRefresher{snapshot: snapshotAt(refreshedAt, map[string]string{
		"BTC_USD": "60000",
		"EUR_USD": "1.08",
	})}
	cache, store := newTestCache(t, refresher, time.Hour)

	if _, err := cache.Snapshot(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	persisted, err := store.LoadRates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(persisted.Pairs) != 2 || !persisted.LastRefresh.Equal(refreshedAt) {
		t.Fatalf("snapshot not persisted: %+v", persisted)
	}
	history, err := store.ListRateHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history))
	}
	for _, record := range history {
		if record.ID == "" || record.Source != "test" {
			t.Fatalf("incomplete history record: %+v", record)
		}
	}
}

func TestCacheLoadsPersistedSnapshot(t *testing.T) {
	store := memory.New()
	refreshedAt := time.Now().UTC()
	if err := store.SaveRates(context.Background(), snapshotAt(refreshedAt, map[string]string{"BTC_USD": "59000"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refresher := &stubRefresher{snapshot: snapshotAt(refreshedAt, map[string]string{"BTC_USD": "60000"})}
	cache := NewCache(store, refresher, time.Hour, zerolog.Nop())
	cache.SetClock(func() time.Time { return refreshedAt })

	rate, _, err := cache.PairRate(context.Background(), "BTC", "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("59000")) {
		t.Fatalf("persisted snapshot ignored, got rate %s", rate)
	}
	if refresher.calls != 0 {
		t.Fatalf("refresh fired despite fresh persisted snapshot")
	}
}
