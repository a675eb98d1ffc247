package handlers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"valutahub/internal/models"
	"valutahub/internal/services"
)

type UserService interface {
	Register(ctx context.Context, username, password string) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
}

type TransactionService interface {
	Buy(ctx context.Context, userID, code string, amount decimal.Decimal) (services.Receipt, error)
	Sell(ctx context.Context, userID, code string, amount decimal.Decimal) (services.Receipt, error)
	PortfolioValue(ctx context.Context, userID, base string) ([]services.WalletValuation, decimal.Decimal, error)
	Rate(ctx context.Context, from, to string) (decimal.Decimal, time.Time, error)
	ForceRefreshRates(ctx context.Context, sourceFilter string) (int, error)
	WalletBalance(ctx context.Context, userID, code string) (models.Wallet, error)
}

type RateHistoryLister interface {
	ListRateHistory(ctx context.Context, limit int) ([]models.RateHistoryRecord, error)
}
