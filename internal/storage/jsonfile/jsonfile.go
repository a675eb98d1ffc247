// Package jsonfile persists each entity kind as one JSON document under a
// data directory. Writes go through a temp file and rename so a crash never
// leaves a half-written document. Single-process access only.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"valutahub/internal/models"
)

const (
	usersFile      = "users.json"
	portfoliosFile = "portfolios.json"
	ratesFile      = "rates.json"
	historyFile    = "rate_history.json"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) LoadUsers(_ context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.load(usersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) SaveUsers(_ context.Context, users []models.User) error {
	return s.save(usersFile, users)
}

func (s *Store) LoadPortfolios(_ context.Context) ([]*models.Portfolio, error) {
	var portfolios []*models.Portfolio
	if err := s.load(portfoliosFile, &portfolios); err != nil {
		return nil, err
	}
	return portfolios, nil
}

func (s *Store) SavePortfolios(_ context.Context, portfolios []*models.Portfolio) error {
	return s.save(portfoliosFile, portfolios)
}

func (s *Store) LoadRates(_ context.Context) (models.RateSnapshot, error) {
	var snapshot models.RateSnapshot
	if err := s.load(ratesFile, &snapshot); err != nil {
		return models.RateSnapshot{}, err
	}
	return snapshot, nil
}

func (s *Store) SaveRates(_ context.Context, snapshot models.RateSnapshot) error {
	return s.save(ratesFile, snapshot)
}

func (s *Store) AppendRateHistory(_ context.Context, records []models.RateHistoryRecord) error {
	var history []models.RateHistoryRecord
	if err := s.load(historyFile, &history); err != nil {
		return err
	}
	history = append(history, records...)
	return s.save(historyFile, history)
}

func (s *Store) ListRateHistory(_ context.Context, limit int) ([]models.RateHistoryRecord, error) {
	var history []models.RateHistoryRecord
	if err := s.load(historyFile, &history); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}
	records := make([]models.RateHistoryRecord, 0, limit)
	for i := len(history) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, history[i])
	}
	return records, nil
}

// load leaves dest at its zero value when the file does not exist yet.
func (s *Store) load(name string, dest any) error {
	content, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(content) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, dest); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) save(name string, value any) error {
	content, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
