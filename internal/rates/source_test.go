package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"valutahub/internal/errs"
)

func TestCoinGeckoFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":60000.12},"ethereum":{"usd":3720}}`))
	}))
	defer server.Close()

	source, err := NewCoinGecko(server.URL+"/", "USD", map[string]string{"BTC": "bitcoin", "ETH": "ethereum"}, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pairs, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pairs["BTC_USD"].Equal(decimal.RequireFromString("60000.12")) {
		t.Fatalf("unexpected BTC rate: %s", pairs["BTC_USD"])
	}
	if !pairs["ETH_USD"].Equal(decimal.RequireFromString("3720")) {
		t.Fatalf("unexpected ETH rate: %s", pairs["ETH_USD"])
	}
}

func TestCoinGeckoServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source, err := NewCoinGecko(server.URL+"/", "USD", map[string]string{"BTC": "bitcoin"}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = source.Fetch(context.Background())
	if errs.KindOf(err) != errs.KindSourceUnavailable {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
}

func TestExchangeRateAPIFetchReciprocates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/test-key/latest/USD" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","conversion_rates":{"EUR":0.93,"GBP":0.80,"USD":1,"XXX":2}}`))
	}))
	defer server.Close()

	source, err := NewExchangeRateAPI(server.URL+"/", "test-key", "USD", []string{"EUR", "GBP", "USD"}, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pairs, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The provider reports 0.93 EUR per USD; EUR_USD must read as USD per EUR.
	expected := decimal.NewFromInt(1).Div(decimal.RequireFromString("0.93"))
	if !pairs["EUR_USD"].Equal(expected) {
		t.Fatalf("expected %s, got %s", expected, pairs["EUR_USD"])
	}
	if _, ok := pairs["USD_USD"]; ok {
		t.Fatalf("base currency quoted against itself")
	}
	if _, ok := pairs["XXX_USD"]; ok {
		t.Fatalf("pair outside configured universe was emitted")
	}
}

func TestExchangeRateAPIProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
	}))
	defer server.Close()

	source, err := NewExchangeRateAPI(server.URL+"/", "bad-key", "USD", []string{"EUR"}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = source.Fetch(context.Background())
	if errs.KindOf(err) != errs.KindSourceUnavailable {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
}

func TestExchangeRateAPIMissingKey(t *testing.T) {
	source, err := NewExchangeRateAPI("https://example.invalid/", "", "USD", []string{"EUR"}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = source.Fetch(context.Background())
	if errs.KindOf(err) != errs.KindSourceUnavailable {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
}
