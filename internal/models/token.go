package models

import (
	"time"

	"github.com/google/uuid"
)

// Persisted refresh token record
// Its existence in the store is the source of truth for whether the token
// may still be rotated. Rotation deletes it, records are never updated.
type RefreshToken struct {
	ID        uuid.UUID // jti claim of the signed token
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
