package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"valutahub/internal/models"
)

// ExchangeRateAPI quotes a fixed fiat universe against one base fiat via
// /v6/<key>/latest/<BASE>. The provider reports units of quote currency per
// 1 base unit; pairs are stored reciprocated as QUOTE_BASE so the rate reads
// as base units per 1 quote unit, matching the FROM_TO convention.
type ExchangeRateAPI struct {
	client   *client
	apiKey   string
	baseFiat string
	// universe is the set of fiat codes this source may quote.
	universe map[string]struct{}
}

func NewExchangeRateAPI(baseURL, apiKey, baseFiat string, fiatCodes []string, timeout time.Duration) (*ExchangeRateAPI, error) {
	c, err := newClient(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	universe := make(map[string]struct{}, len(fiatCodes))
	for _, code := range fiatCodes {
		universe[strings.ToUpper(code)] = struct{}{}
	}
	return &ExchangeRateAPI{
		client:   c,
		apiKey:   apiKey,
		baseFiat: strings.ToUpper(baseFiat),
		universe: universe,
	}, nil
}

func (e *ExchangeRateAPI) Name() string { return "exchangerate-api" }

type exchangeRateResponse struct {
	Result          string                 `json:"result"`
	ErrorType       string                 `json:"error-type"`
	ConversionRates map[string]json.Number `json:"conversion_rates"`
}

func (e *ExchangeRateAPI) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	if e.apiKey == "" {
		return nil, sourceErr(e.Name(), fmt.Errorf("missing API key"))
	}
	var payload exchangeRateResponse
	path := fmt.Sprintf("%s/latest/%s", e.apiKey, e.baseFiat)
	if err := e.client.getJSON(ctx, path, nil, &payload); err != nil {
		return nil, sourceErr(e.Name(), err)
	}
	if payload.Result != "success" {
		return nil, sourceErr(e.Name(), fmt.Errorf("provider returned %q", payload.ErrorType))
	}

	one := decimal.NewFromInt(1)
	quotes := make(map[string]decimal.Decimal, len(e.universe))
	for code, raw := range payload.ConversionRates {
		code = strings.ToUpper(code)
		if _, ok := e.universe[code]; !ok || code == e.baseFiat {
			continue
		}
		perBase, err := decimal.NewFromString(raw.String())
		if err != nil || perBase.LessThanOrEqual(decimal.Zero) {
			continue
		}
		quotes[models.PairKey(code, e.baseFiat)] = one.Div(perBase)
	}
	if len(quotes) == 0 {
		return nil, sourceErr(e.Name(), errEmptyResponse)
	}
	return quotes, nil
}
