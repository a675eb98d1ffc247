package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"valutahub/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestMissingFilesReadAsEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	users, err := store.LoadUsers(ctx)
	if err != nil || len(users) != 0 {
		t.Fatalf("expected no users, got %v %v", users, err)
	}
	portfolios, err := store.LoadPortfolios(ctx)
	if err != nil || len(portfolios) != 0 {
		t.Fatalf("expected no portfolios, got %v %v", portfolios, err)
	}
	snapshot, err := store.LoadRates(ctx)
	if err != nil || !snapshot.Empty() {
		t.Fatalf("expected empty snapshot, got %+v %v", snapshot, err)
	}
	history, err := store.ListRateHistory(ctx, 0)
	if err != nil || len(history) != 0 {
		t.Fatalf("expected no history, got %v %v", history, err)
	}
}

func TestPortfolioRoundTripKeepsDecimalText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	portfolio := models.NewPortfolio("user-1")
	portfolio.EnsureWallet("USD").Balance = decimal.RequireFromString("1000.00")
	portfolio.EnsureWallet("BTC").Balance = decimal.RequireFromString("0.01000000")
	if err := store.SavePortfolios(ctx, []*models.Portfolio{portfolio}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.LoadPortfolios(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].UserID != "user-1" {
		t.Fatalf("unexpected portfolios: %+v", loaded)
	}
	if !loaded[0].Wallets["USD"].Balance.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("USD balance drifted: %s", loaded[0].Wallets["USD"].Balance)
	}
	if !loaded[0].Wallets["BTC"].Balance.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("BTC balance drifted: %s", loaded[0].Wallets["BTC"].Balance)
	}

	// Balances are stored as JSON strings, never floats.
	content, err := os.ReadFile(filepath.Join(store.dir, portfoliosFile))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(content), `"1000"`) && !strings.Contains(string(content), `"1000.00"`) {
		t.Fatalf("balance not stored as string: %s", content)
	}
}

func TestRatesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	refreshedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	snapshot := models.RateSnapshot{
		Pairs: map[string]models.RatePair{
			"BTC_USD": {From: "BTC", To: "USD", Rate: decimal.RequireFromString("60000.12"), UpdatedAt: refreshedAt, Source: "coingecko"},
		},
		LastRefresh: refreshedAt,
		Source:      "coingecko",
	}
	if err := store.SaveRates(ctx, snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.LoadRates(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.LastRefresh.Equal(refreshedAt) || loaded.Source != "coingecko" {
		t.Fatalf("snapshot metadata drifted: %+v", loaded)
	}
	if !loaded.Pairs["BTC_USD"].Rate.Equal(decimal.RequireFromString("60000.12")) {
		t.Fatalf("rate drifted: %s", loaded.Pairs["BTC_USD"].Rate)
	}
}

func TestRateHistoryAppendsAndListsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := []models.RateHistoryRecord{
		{ID: "1", From: "BTC", To: "USD", Rate: decimal.NewFromInt(59000), Timestamp: base, Source: "coingecko"},
	}
	second := []models.RateHistoryRecord{
		{ID: "2", From: "BTC", To: "USD", Rate: decimal.NewFromInt(60000), Timestamp: base.Add(time.Minute), Source: "coingecko"},
		{ID: "3", From: "EUR", To: "USD", Rate: decimal.RequireFromString("1.08"), Timestamp: base.Add(time.Minute), Source: "exchangerate-api"},
	}
	if err := store.AppendRateHistory(ctx, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendRateHistory(ctx, second); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := store.ListRateHistory(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 records, got %d", len(history))
	}
	if history[0].ID != "3" || history[2].ID != "1" {
		t.Fatalf("history not newest-first: %+v", history)
	}

	limited, err := store.ListRateHistory(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "3" || limited[1].ID != "2" {
		t.Fatalf("limit not honored: %+v", limited)
	}
}
