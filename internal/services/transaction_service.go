package services

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"valutahub/internal/currency"
	"valutahub/internal/errs"
	"valutahub/internal/metrics"
	"valutahub/internal/models"
	"valutahub/internal/websocket"
)

// RateProvider is the slice of the rate cache the engine needs.
type RateProvider interface {
	PairRate(ctx context.Context, from, to string) (decimal.Decimal, time.Time, error)
	ForceRefresh(ctx context.Context, sourceFilter string) (int, error)
}

// LedgerRunner is the slice of the ledger the engine needs.
type LedgerRunner interface {
	Portfolio(ctx context.Context, userID string) (*models.Portfolio, error)
	WithPortfolio(ctx context.Context, userID string, fn func(*models.Portfolio) error) error
}

// BalanceHub pushes balance changes to connected clients.
type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// Receipt describes one executed buy or sell: Amount in the traded currency,
// Rate as base units per 1 traded unit, Total in the base currency.
type Receipt struct {
	Type      string          `json:"type"`
	Code      string          `json:"code"`
	Base      string          `json:"base"`
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

// TransactionService executes buy/sell against the ledger using rates from
// the cache. Both legs of a trade apply to one in-memory portfolio copy and
// persist as a single write; any failed check leaves the ledger untouched.
type TransactionService struct {
	registry *currency.Registry
	rates    RateProvider
	ledger   LedgerRunner
	hub      BalanceHub
	base     string
	log      zerolog.Logger
}

func NewTransactionService(registry *currency.Registry, rates RateProvider, ledger LedgerRunner, hub BalanceHub, baseCurrency string, log zerolog.Logger) *TransactionService {
	return &TransactionService{
		registry: registry,
		rates:    rates,
		ledger:   ledger,
		hub:      hub,
		base:     baseCurrency,
		log:      log,
	}
}

// Buy converts base currency into amount of code at the current code→base
// rate. The target wallet is created on first buy.
func (s *TransactionService) Buy(ctx context.Context, userID, code string, amount decimal.Decimal) (Receipt, error) {
	receipt, err := s.trade(ctx, userID, code, amount, true)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.Transactions.WithLabelValues("buy", outcome).Inc()
	return receipt, err
}

// Sell converts amount of code back into base currency. Selling a currency
// never held fails with WalletNotFound; no wallet is auto-created.
func (s *TransactionService) Sell(ctx context.Context, userID, code string, amount decimal.Decimal) (Receipt, error) {
	receipt, err := s.trade(ctx, userID, code, amount, false)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.Transactions.WithLabelValues("sell", outcome).Inc()
	return receipt, err
}

func (s *TransactionService) trade(ctx context.Context, userID, code string, amount decimal.Decimal, isBuy bool) (Receipt, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Receipt{}, errs.Validation("amount must be positive")
	}
	resolved, err := s.registry.Resolve(code)
	if err != nil {
		return Receipt{}, err
	}
	code = resolved.Code
	if code == s.base {
		return Receipt{}, errs.Validation("cannot trade the base currency against itself")
	}

	var receipt Receipt
	var baseAfter, codeAfter decimal.Decimal
	err = s.ledger.WithPortfolio(ctx, userID, func(p *models.Portfolio) error {
		if !isBuy {
			if _, err := p.Wallet(code); err != nil {
				return err
			}
		}
		rate, refreshedAt, err := s.rates.PairRate(ctx, code, s.base)
		if err != nil {
			return err
		}
		converted := amount.Mul(rate)

		baseWallet := p.EnsureWallet(s.base)
		if isBuy {
			codeWallet := p.EnsureWallet(code)
			if err := baseWallet.Withdraw(converted); err != nil {
				return err
			}
			if err := codeWallet.Deposit(amount); err != nil {
				return err
			}
		} else {
			codeWallet, err := p.Wallet(code)
			if err != nil {
				return err
			}
			if err := codeWallet.Withdraw(amount); err != nil {
				return err
			}
			if err := baseWallet.Deposit(converted); err != nil {
				return err
			}
		}
		baseAfter = baseWallet.Balance
		codeAfter = p.Wallets[code].Balance

		kind := "sell"
		if isBuy {
			kind = "buy"
		}
		receipt = Receipt{
			Type:      kind,
			Code:      code,
			Base:      s.base,
			Amount:    amount,
			Rate:      rate,
			Total:     converted,
			Timestamp: refreshedAt,
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	s.log.Info().Str("user_id", userID).Str("type", receipt.Type).Str("code", code).
		Str("amount", amount.String()).Str("rate", receipt.Rate.String()).
		Str("total", receipt.Total.String()).Msg("trade executed")
	if s.hub != nil {
		s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
			Currency: s.base, Balance: baseAfter.String(),
		})
		s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
			Currency: code, Balance: codeAfter.String(),
		})
	}
	return receipt, nil
}

// WalletValuation is one row of a portfolio breakdown.
type WalletValuation struct {
	Code    string          `json:"code"`
	Balance decimal.Decimal `json:"balance"`
	Value   decimal.Decimal `json:"value_in_base"`
	Priced  bool            `json:"priced"`
}

// PortfolioValue values every wallet in base currency. A holding with no
// resolvable rate contributes zero instead of failing; valuation is best
// effort by design.
func (s *TransactionService) PortfolioValue(ctx context.Context, userID, base string) ([]WalletValuation, decimal.Decimal, error) {
	resolved, err := s.registry.Resolve(base)
	if err != nil {
		return nil, decimal.Zero, err
	}
	base = resolved.Code
	portfolio, err := s.ledger.Portfolio(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	breakdown := make([]WalletValuation, 0, len(portfolio.Wallets))
	total := decimal.Zero
	for code, wallet := range portfolio.Wallets {
		row := WalletValuation{Code: code, Balance: wallet.Balance}
		if code == base {
			row.Value = wallet.Balance
			row.Priced = true
		} else {
			rate, _, err := s.rates.PairRate(ctx, code, base)
			switch errs.KindOf(err) {
			case errs.KindUnknown:
				if err != nil {
					return nil, decimal.Zero, err
				}
				row.Value = wallet.Balance.Mul(rate)
				row.Priced = true
			case errs.KindRateUnavailable, errs.KindAllSourcesUnavailable:
				row.Value = decimal.Zero
			default:
				return nil, decimal.Zero, err
			}
		}
		total = total.Add(row.Value)
		breakdown = append(breakdown, row)
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Code < breakdown[j].Code })
	return breakdown, total, nil
}

// Rate resolves both codes through the registry and returns the current rate
// with the snapshot timestamp it came from.
func (s *TransactionService) Rate(ctx context.Context, from, to string) (decimal.Decimal, time.Time, error) {
	fromCur, err := s.registry.Resolve(from)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	toCur, err := s.registry.Resolve(to)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	return s.rates.PairRate(ctx, fromCur.Code, toCur.Code)
}

// ForceRefreshRates bypasses the TTL, optionally targeting one source, and
// reports how many pairs were updated.
func (s *TransactionService) ForceRefreshRates(ctx context.Context, sourceFilter string) (int, error) {
	return s.rates.ForceRefresh(ctx, sourceFilter)
}

// WalletBalance returns the user's balance for one currency.
func (s *TransactionService) WalletBalance(ctx context.Context, userID, code string) (models.Wallet, error) {
	resolved, err := s.registry.Resolve(code)
	if err != nil {
		return models.Wallet{}, err
	}
	portfolio, err := s.ledger.Portfolio(ctx, userID)
	if err != nil {
		return models.Wallet{}, err
	}
	wallet, err := portfolio.Wallet(resolved.Code)
	if err != nil {
		return models.Wallet{}, err
	}
	return *wallet, nil
}
