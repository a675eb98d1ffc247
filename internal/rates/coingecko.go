package rates

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"valutahub/internal/models"
)

// CoinGecko quotes a fixed crypto universe against one base fiat via
// /simple/price. It never emits pairs outside that universe.
type CoinGecko struct {
	client   *client
	baseFiat string
	// coinIDs maps currency code to the provider's coin identifier,
	// e.g. BTC -> bitcoin.
	coinIDs map[string]string
}

// DefaultCoinIDs covers the built-in crypto catalog.
var DefaultCoinIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"SOL": "solana",
}

func NewCoinGecko(baseURL, baseFiat string, coinIDs map[string]string, timeout time.Duration) (*CoinGecko, error) {
	c, err := newClient(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &CoinGecko{client: c, baseFiat: strings.ToUpper(baseFiat), coinIDs: coinIDs}, nil
}

func (g *CoinGecko) Name() string { return "coingecko" }

func (g *CoinGecko) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(g.coinIDs))
	for _, id := range g.coinIDs {
		ids = append(ids, id)
	}
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", strings.ToLower(g.baseFiat))
	query.Set("precision", "full")

	// {"bitcoin": {"usd": 60000.12}, ...}; json.Number keeps the quote as
	// exact text for the decimal conversion.
	var payload map[string]map[string]json.Number
	if err := g.client.getJSON(ctx, "simple/price", query, &payload); err != nil {
		return nil, sourceErr(g.Name(), err)
	}

	vs := strings.ToLower(g.baseFiat)
	quotes := make(map[string]decimal.Decimal, len(g.coinIDs))
	for code, coinID := range g.coinIDs {
		coin, ok := payload[coinID]
		if !ok {
			continue
		}
		raw, ok := coin[vs]
		if !ok {
			continue
		}
		rate, err := decimal.NewFromString(raw.String())
		if err != nil || rate.LessThanOrEqual(decimal.Zero) {
			continue
		}
		quotes[models.PairKey(code, g.baseFiat)] = rate
	}
	if len(quotes) == 0 {
		return nil, sourceErr(g.Name(), errEmptyResponse)
	}
	return quotes, nil
}
