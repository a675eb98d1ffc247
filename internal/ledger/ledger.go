// Package ledger owns wallet balances and their mutation rules. All
// mutations for one user are assumed sequential within the process; the
// portfolio is persisted whole, as one write, only after the mutation
// succeeds.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"valutahub/internal/errs"
	"valutahub/internal/models"
	"valutahub/internal/storage"
)

type Ledger struct {
	store storage.Store
}

func New(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// CreatePortfolio registers a new portfolio seeded with initialBalance in the
// base currency.
func (l *Ledger) CreatePortfolio(ctx context.Context, userID, baseCurrency string, initialBalance decimal.Decimal) error {
	portfolios, err := l.store.LoadPortfolios(ctx)
	if err != nil {
		return err
	}
	for _, p := range portfolios {
		if p.UserID == userID {
			return errs.Validation("portfolio already exists for user")
		}
	}
	portfolio := models.NewPortfolio(userID)
	wallet := portfolio.EnsureWallet(baseCurrency)
	wallet.Balance = initialBalance
	portfolios = append(portfolios, portfolio)
	return l.store.SavePortfolios(ctx, portfolios)
}

// Portfolio returns a copy of the user's portfolio.
func (l *Ledger) Portfolio(ctx context.Context, userID string) (*models.Portfolio, error) {
	portfolios, err := l.store.LoadPortfolios(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range portfolios {
		if p.UserID == userID {
			return p.Clone(), nil
		}
	}
	return nil, errs.UserNotFound()
}

// GetWallet returns the user's wallet for code, failing with WalletNotFound
// when that currency has never been held.
func (l *Ledger) GetWallet(ctx context.Context, userID, code string) (models.Wallet, error) {
	portfolio, err := l.Portfolio(ctx, userID)
	if err != nil {
		return models.Wallet{}, err
	}
	wallet, err := portfolio.Wallet(code)
	if err != nil {
		return models.Wallet{}, err
	}
	return *wallet, nil
}

// EnsureWallet creates a zero-balance wallet for code if absent. Idempotent.
func (l *Ledger) EnsureWallet(ctx context.Context, userID, code string) error {
	return l.WithPortfolio(ctx, userID, func(p *models.Portfolio) error {
		p.EnsureWallet(code)
		return nil
	})
}

// Deposit increases the wallet balance. The wallet is created when absent.
func (l *Ledger) Deposit(ctx context.Context, userID, code string, amount decimal.Decimal) error {
	return l.WithPortfolio(ctx, userID, func(p *models.Portfolio) error {
		return p.EnsureWallet(code).Deposit(amount)
	})
}

// Withdraw decreases the wallet balance, failing with InsufficientFunds
// before any state change when the balance does not cover amount.
func (l *Ledger) Withdraw(ctx context.Context, userID, code string, amount decimal.Decimal) error {
	return l.WithPortfolio(ctx, userID, func(p *models.Portfolio) error {
		wallet, err := p.Wallet(code)
		if err != nil {
			return err
		}
		return wallet.Withdraw(amount)
	})
}

// WithPortfolio loads the user's portfolio, applies fn to an in-memory copy,
// and persists the whole portfolio as one write only when fn returns nil. A
// failing fn leaves persisted state untouched.
func (l *Ledger) WithPortfolio(ctx context.Context, userID string, fn func(*models.Portfolio) error) error {
	portfolios, err := l.store.LoadPortfolios(ctx)
	if err != nil {
		return err
	}
	index := -1
	for i, p := range portfolios {
		if p.UserID == userID {
			index = i
			break
		}
	}
	if index < 0 {
		return errs.UserNotFound()
	}
	working := portfolios[index].Clone()
	if err := fn(working); err != nil {
		return err
	}
	portfolios[index] = working
	return l.store.SavePortfolios(ctx, portfolios)
}
