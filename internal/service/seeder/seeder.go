package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/logger"
	"github.com/nkiryanov/authd/internal/repository"
	"github.com/nkiryanov/authd/internal/service/auth"
)

// Account to be created at startup when absent
type Account struct {
	Email    string
	Password string
}

// Seeder creates default accounts (admin, guest) on startup
type Seeder struct {
	hasher   auth.PasswordHasher
	userRepo repository.UserRepo
	logger   logger.Logger
}

func New(hasher auth.PasswordHasher, userRepo repository.UserRepo, l logger.Logger) *Seeder {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &Seeder{
		hasher:   hasher,
		userRepo: userRepo,
		logger:   l,
	}
}

// Seed creates every account that does not exist yet
// Accounts with an empty email or password are skipped.
func (s *Seeder) Seed(ctx context.Context, accounts ...Account) error {
	for _, account := range accounts {
		if account.Email == "" || account.Password == "" {
			continue
		}

		if err := s.seedAccount(ctx, account); err != nil {
			return err
		}
	}

	return nil
}

func (s *Seeder) seedAccount(ctx context.Context, account Account) error {
	hash, err := s.hasher.Hash(account.Password)
	if err != nil {
		return fmt.Errorf("can't hash password for %s. Err: %w", account.Email, err)
	}

	_, err = s.userRepo.CreateUser(ctx, account.Email, hash)
	switch {
	case err == nil:
		s.logger.Info("Seeded default user", "email", account.Email)
		return nil
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		s.logger.Debug("Default user exists already", "email", account.Email)
		return nil
	default:
		return fmt.Errorf("can't seed user %s. Err: %w", account.Email, err)
	}
}
