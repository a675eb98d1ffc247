package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"valutahub/internal/auth"
	"valutahub/internal/errs"
	"valutahub/internal/models"
	"valutahub/internal/storage"
	"valutahub/internal/validator"
)

// PortfolioCreator seeds a new user's portfolio.
type PortfolioCreator interface {
	CreatePortfolio(ctx context.Context, userID, baseCurrency string, initialBalance decimal.Decimal) error
}

// UserService handles registration and credential checks. A new user gets a
// portfolio holding the initial balance in the base currency.
type UserService struct {
	store          storage.Store
	ledger         PortfolioCreator
	base           string
	initialBalance decimal.Decimal
	log            zerolog.Logger
}

func NewUserService(store storage.Store, ledger PortfolioCreator, baseCurrency string, initialBalance decimal.Decimal, log zerolog.Logger) *UserService {
	return &UserService{
		store:          store,
		ledger:         ledger,
		base:           baseCurrency,
		initialBalance: initialBalance,
		log:            log,
	}
}

func (s *UserService) Register(ctx context.Context, username, password string) (models.User, error) {
	if err := validator.ValidateUsername(username); err != nil {
		return models.User{}, err
	}
	if err := validator.ValidatePassword(password); err != nil {
		return models.User{}, err
	}
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, existing := range users {
		if existing.Username == username {
			return models.User{}, errs.UserExists()
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	// The user record is persisted only after their portfolio exists.
	if err := s.ledger.CreatePortfolio(ctx, user.ID, s.base, s.initialBalance); err != nil {
		return models.User{}, err
	}
	users = append(users, user)
	if err := s.store.SaveUsers(ctx, users); err != nil {
		return models.User{}, err
	}
	s.log.Info().Str("user_id", user.ID).Str("username", username).Msg("user registered")
	return user, nil
}

// Authenticate verifies the username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, user := range users {
		if user.Username == username {
			if !auth.CheckPassword(user.PasswordHash, password) {
				return models.User{}, errs.InvalidCredentials()
			}
			return user, nil
		}
	}
	return models.User{}, errs.InvalidCredentials()
}

// GetUser loads one user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (models.User, error) {
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, user := range users {
		if user.ID == userID {
			return user, nil
		}
	}
	return models.User{}, errs.UserNotFound()
}
