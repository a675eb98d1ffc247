// Package postgres backs the store with PostgreSQL via sqlx. Portfolios and
// the rate snapshot are stored as JSON documents; decimal fields travel as
// JSON strings or text columns, never floats.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"valutahub/internal/models"
)

type Store struct {
	db *sqlx.DB
}

func Connect(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sqlx.DB { return s.db }

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (s *Store) LoadUsers(ctx context.Context) ([]models.User, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, username, password_hash, created_at
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, models.User{
			ID:           row.ID,
			Username:     row.Username,
			PasswordHash: row.PasswordHash,
			CreatedAt:    row.CreatedAt,
		})
	}
	return users, nil
}

func (s *Store) SaveUsers(ctx context.Context, users []models.User) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, user := range users {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO users (id, username, password_hash, created_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE
				SET username = EXCLUDED.username, password_hash = EXCLUDED.password_hash
			`, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type docRow struct {
	Doc []byte `db:"doc"`
}

func (s *Store) LoadPortfolios(ctx context.Context) ([]*models.Portfolio, error) {
	var rows []docRow
	err := s.db.SelectContext(ctx, &rows, `SELECT doc FROM portfolios`)
	if err != nil {
		return nil, err
	}
	portfolios := make([]*models.Portfolio, 0, len(rows))
	for _, row := range rows {
		var p models.Portfolio
		if err := json.Unmarshal(row.Doc, &p); err != nil {
			return nil, fmt.Errorf("decode portfolio: %w", err)
		}
		portfolios = append(portfolios, &p)
	}
	return portfolios, nil
}

func (s *Store) SavePortfolios(ctx context.Context, portfolios []*models.Portfolio) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range portfolios {
			doc, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode portfolio: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO portfolios (user_id, doc)
				VALUES ($1, $2)
				ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc
			`, p.UserID, doc)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadRates(ctx context.Context) (models.RateSnapshot, error) {
	var row docRow
	err := s.db.GetContext(ctx, &row, `SELECT doc FROM rate_snapshot WHERE id = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RateSnapshot{}, nil
		}
		return models.RateSnapshot{}, err
	}
	var snapshot models.RateSnapshot
	if err := json.Unmarshal(row.Doc, &snapshot); err != nil {
		return models.RateSnapshot{}, fmt.Errorf("decode rate snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *Store) SaveRates(ctx context.Context, snapshot models.RateSnapshot) error {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode rate snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rate_snapshot (id, doc)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
	`, doc)
	return err
}

type historyRow struct {
	ID        string    `db:"id"`
	FromCode  string    `db:"from_code"`
	ToCode    string    `db:"to_code"`
	Rate      string    `db:"rate"`
	Timestamp time.Time `db:"ts"`
	Source    string    `db:"source"`
}

func (s *Store) AppendRateHistory(ctx context.Context, records []models.RateHistoryRecord) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, record := range records {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO rate_history (id, from_code, to_code, rate, ts, source)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, record.ID, record.From, record.To, record.Rate.String(), record.Timestamp, record.Source)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListRateHistory(ctx context.Context, limit int) ([]models.RateHistoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []historyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, from_code, to_code, rate, ts, source
		FROM rate_history
		ORDER BY ts DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	records := make([]models.RateHistoryRecord, 0, len(rows))
	for _, row := range rows {
		rate, err := decimal.NewFromString(row.Rate)
		if err != nil {
			return nil, fmt.Errorf("decode history rate: %w", err)
		}
		records = append(records, models.RateHistoryRecord{
			ID:        row.ID,
			From:      row.FromCode,
			To:        row.ToCode,
			Rate:      rate,
			Timestamp: row.Timestamp,
			Source:    row.Source,
		})
	}
	return records, nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	const maxAttempts = 5
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isRetryablePGError(err) && attempt < maxAttempts {
				sleepWithBackoff(attempt)
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if isRetryablePGError(err) && attempt < maxAttempts {
				sleepWithBackoff(attempt)
				continue
			}
			return err
		}
		return nil
	}
	return errors.New("transaction retry limit exceeded")
}

func isRetryablePGError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func sleepWithBackoff(attempt int) {
	base := 20 * time.Millisecond
	backoff := time.Duration(attempt*attempt) * base
	jitter := time.Duration(rand.Int63n(int64(10 * time.Millisecond)))
	time.Sleep(backoff + jitter)
}
