package currency

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"valutahub/internal/errs"
)

// Kind distinguishes fiat money from crypto assets.
type Kind string

const (
	Fiat   Kind = "fiat"
	Crypto Kind = "crypto"
)

var codeRegex = regexp.MustCompile(`^[A-Z]{2,5}$`)

// Currency is an immutable catalog entry. Kind-specific metadata lives in
// IssuingAuthority (fiat) or Algorithm/MarketCap (crypto).
type Currency struct {
	Code             string
	Name             string
	Kind             Kind
	IssuingAuthority string
	Algorithm        string
	MarketCap        decimal.Decimal
}

// ValidateCode checks the 2-5 uppercase letter format without consulting the
// registry.
func ValidateCode(code string) error {
	if !codeRegex.MatchString(code) {
		return errs.Validation("currency code must be 2-5 uppercase letters")
	}
	return nil
}

// Registry is the single source of truth for known currencies. It is
// populated once at construction and read-only afterwards.
type Registry struct {
	byCode map[string]Currency
}

func NewRegistry(currencies []Currency) *Registry {
	byCode := make(map[string]Currency, len(currencies))
	for _, c := range currencies {
		byCode[c.Code] = c
	}
	return &Registry{byCode: byCode}
}

// DefaultRegistry returns the built-in catalog.
func DefaultRegistry() *Registry {
	return NewRegistry([]Currency{
		{Code: "USD", Name: "US Dollar", Kind: Fiat, IssuingAuthority: "United States"},
		{Code: "EUR", Name: "Euro", Kind: Fiat, IssuingAuthority: "Eurozone"},
		{Code: "GBP", Name: "Pound Sterling", Kind: Fiat, IssuingAuthority: "United Kingdom"},
		{Code: "RUB", Name: "Russian Ruble", Kind: Fiat, IssuingAuthority: "Russian Federation"},
		{Code: "JPY", Name: "Japanese Yen", Kind: Fiat, IssuingAuthority: "Japan"},
		{Code: "AED", Name: "UAE Dirham", Kind: Fiat, IssuingAuthority: "United Arab Emirates"},
		{Code: "BTC", Name: "Bitcoin", Kind: Crypto, Algorithm: "SHA-256", MarketCap: decimal.RequireFromString("1120000000000")},
		{Code: "ETH", Name: "Ethereum", Kind: Crypto, Algorithm: "Ethash", MarketCap: decimal.RequireFromString("450000000000")},
		{Code: "SOL", Name: "Solana", Kind: Crypto, Algorithm: "PoH", MarketCap: decimal.RequireFromString("78000000000")},
	})
}

// Resolve normalizes code to uppercase and returns the catalog entry.
func (r *Registry) Resolve(code string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := ValidateCode(normalized); err != nil {
		return Currency{}, err
	}
	c, ok := r.byCode[normalized]
	if !ok {
		return Currency{}, errs.CurrencyNotFound(normalized)
	}
	return c, nil
}

// Codes lists every registered code.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	return codes
}

// CodesByKind lists registered codes of one kind.
func (r *Registry) CodesByKind(kind Kind) []string {
	var codes []string
	for code, c := range r.byCode {
		if c.Kind == kind {
			codes = append(codes, code)
		}
	}
	return codes
}
