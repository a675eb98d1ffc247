// Package memory backs the store with process memory. Each instance is
// isolated, which is what tests and single-shot tooling want.
package memory

import (
	"context"
	"sync"

	"valutahub/internal/models"
)

type Store struct {
	mu         sync.Mutex
	users      []models.User
	portfolios []*models.Portfolio
	rates      models.RateSnapshot
	history    []models.RateHistoryRecord
}

func New() *Store {
	return &Store{}
}

func (s *Store) LoadUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, len(s.users))
	copy(users, s.users)
	return users, nil
}

func (s *Store) SaveUsers(_ context.Context, users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make([]models.User, len(users))
	copy(s.users, users)
	return nil
}

func (s *Store) LoadPortfolios(_ context.Context) ([]*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	portfolios := make([]*models.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		portfolios = append(portfolios, p.Clone())
	}
	return portfolios, nil
}

func (s *Store) SavePortfolios(_ context.Context, portfolios []*models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios = make([]*models.Portfolio, 0, len(portfolios))
	for _, p := range portfolios {
		s.portfolios = append(s.portfolios, p.Clone())
	}
	return nil
}

func (s *Store) LoadRates(_ context.Context) (models.RateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rates.Clone(), nil
}

func (s *Store) SaveRates(_ context.Context, snapshot models.RateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = snapshot.Clone()
	return nil
}

func (s *Store) AppendRateHistory(_ context.Context, records []models.RateHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, records...)
	return nil
}

func (s *Store) ListRateHistory(_ context.Context, limit int) ([]models.RateHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	records := make([]models.RateHistoryRecord, 0, limit)
	for i := len(s.history) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, s.history[i])
	}
	return records, nil
}
