// Package storage defines the persistent store boundary. Records are loaded
// and saved whole per entity kind; decimal fields survive a round trip as
// exact text.
package storage

import (
	"context"

	"valutahub/internal/models"
)

type Store interface {
	LoadUsers(ctx context.Context) ([]models.User, error)
	SaveUsers(ctx context.Context, users []models.User) error

	LoadPortfolios(ctx context.Context) ([]*models.Portfolio, error)
	SavePortfolios(ctx context.Context, portfolios []*models.Portfolio) error

	LoadRates(ctx context.Context) (models.RateSnapshot, error)
	SaveRates(ctx context.Context, snapshot models.RateSnapshot) error

	// AppendRateHistory is append-only; existing records are never mutated
	// or pruned.
	AppendRateHistory(ctx context.Context, records []models.RateHistoryRecord) error
	// ListRateHistory returns the most recent records, newest first.
	ListRateHistory(ctx context.Context, limit int) ([]models.RateHistoryRecord, error)
}
