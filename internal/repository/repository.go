package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/authd/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If a live user with the email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, email string, hashedPassword string) (models.User, error)

	// Get user by its id or email. Soft deleted users are never returned
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Replace the stored password hash
	// If user not found must return apperrors.ErrUserNotFound
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
}

// RefreshToken repository interface
// Point operations on a single table keyed by token id (the jti claim).
// Cross record invariants are the token manager's business, not the repo's.
type RefreshTokenRepo interface {
	// Persist a new token record
	// Must fail with apperrors.ErrRefreshTokenExists if the id is taken already,
	// never silently overwrite
	Save(ctx context.Context, token models.RefreshToken) error

	// Point lookup by token id
	// If not found must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenID uuid.UUID) (models.RefreshToken, error)

	// Remove the record. Idempotent: deleting a missing id is not an error
	Delete(ctx context.Context, tokenID uuid.UUID) error

	// Remove records that expired before the given time
	// Returns how many rows were removed
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Storage aggregates repositories running on the same connection or transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
}
