package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"valutahub/internal/errs"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Wallet holds a single-currency balance. The balance is decimal exact-text
// on the wire and never goes negative.
type Wallet struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// Deposit increases the balance. Amount must be positive.
func (w *Wallet) Deposit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errs.Validation("deposit amount must be positive")
	}
	w.Balance = w.Balance.Add(amount)
	return nil
}

// Withdraw decreases the balance, failing before any mutation when the
// balance does not cover amount.
func (w *Wallet) Withdraw(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errs.Validation("withdraw amount must be positive")
	}
	if amount.GreaterThan(w.Balance) {
		return errs.InsufficientFunds(w.Balance, amount, w.Currency)
	}
	w.Balance = w.Balance.Sub(amount)
	return nil
}

// Portfolio maps currency code to wallet, one wallet per code. Wallets are
// never removed; a zero balance persists.
type Portfolio struct {
	UserID  string             `json:"user_id"`
	Wallets map[string]*Wallet `json:"wallets"`
}

func NewPortfolio(userID string) *Portfolio {
	return &Portfolio{UserID: userID, Wallets: make(map[string]*Wallet)}
}

// Wallet returns the wallet for code or a WalletNotFound error.
func (p *Portfolio) Wallet(code string) (*Wallet, error) {
	w, ok := p.Wallets[code]
	if !ok {
		return nil, errs.WalletNotFound(code)
	}
	return w, nil
}

// EnsureWallet creates a zero-balance wallet for code if absent. Idempotent.
func (p *Portfolio) EnsureWallet(code string) *Wallet {
	if w, ok := p.Wallets[code]; ok {
		return w
	}
	if p.Wallets == nil {
		p.Wallets = make(map[string]*Wallet)
	}
	w := &Wallet{Currency: code, Balance: decimal.Zero}
	p.Wallets[code] = w
	return w
}

// Clone returns a deep copy so a failed mutation never leaks into the
// caller's view.
func (p *Portfolio) Clone() *Portfolio {
	clone := NewPortfolio(p.UserID)
	for code, w := range p.Wallets {
		copied := *w
		clone.Wallets[code] = &copied
	}
	return clone
}

// RatePair is one directed quote: units of To per 1 From. UpdatedAt and
// Source are audit metadata; freshness is judged on the owning snapshot.
type RatePair struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
	Source    string          `json:"source"`
}

// PairKey builds the canonical FROM_TO lookup key.
func PairKey(from, to string) string {
	return from + "_" + to
}

// SplitPairKey is the inverse of PairKey.
func SplitPairKey(key string) (from, to string, ok bool) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// RateSnapshot is the unit of caching and persistence: all pairs expire
// together against LastRefresh.
type RateSnapshot struct {
	Pairs       map[string]RatePair `json:"pairs"`
	LastRefresh time.Time           `json:"last_refresh"`
	Source      string              `json:"source"`
}

// Empty reports whether the snapshot has never been populated.
func (s RateSnapshot) Empty() bool {
	return len(s.Pairs) == 0 && s.LastRefresh.IsZero()
}

// Clone copies the snapshot so cached state cannot be mutated by readers.
func (s RateSnapshot) Clone() RateSnapshot {
	pairs := make(map[string]RatePair, len(s.Pairs))
	for key, pair := range s.Pairs {
		pairs[key] = pair
	}
	return RateSnapshot{Pairs: pairs, LastRefresh: s.LastRefresh, Source: s.Source}
}

// RateHistoryRecord is one immutable append-only audit row, written once per
// pair per refresh.
type RateHistoryRecord struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}
