package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/repository"
)

// Token types embedded in the 'type' claim
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const (
	defaultSigningMethod   = "HS256"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims carried by both token kinds
// Access tokens: sub, type, exp. Refresh tokens additionally use jti
// (RegisteredClaims.ID) as the persistence key.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
}

// Token manager with sensible defaults
type Config struct {
	// Secret keys to sign token payloads
	// Both required to be set. Access and refresh tokens use separate keys,
	// so one leaked key never compromises both token kinds
	AccessSecretKey  string
	RefreshSecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set then default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	accessKey  string
	refreshKey string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Refresh token repo
	refreshRepo repository.RefreshTokenRepo
}

func New(cfg Config, refreshRepo repository.RefreshTokenRepo) (*TokenManager, error) {
	if cfg.AccessSecretKey == "" || cfg.RefreshSecretKey == "" {
		return nil, errors.New("access and refresh secret keys must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method: %q", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		accessKey:   cfg.AccessSecretKey,
		refreshKey:  cfg.RefreshSecretKey,
		alg:         alg,
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		refreshRepo: refreshRepo,
	}, nil
}

// Issue a stateless access token: nothing is persisted,
// signature and expiry are the only checks it will ever get
func (m *TokenManager) IssueAccess(userID uuid.UUID) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			TokenType: TypeAccess,
		},
	)
	signed, err := token.SignedString([]byte(m.accessKey))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Issue a refresh token and persist its record
// The record is saved before the token is handed out: a refresh token that
// is not durably recorded must never reach the caller
func (m *TokenManager) IssueRefresh(ctx context.Context, userID uuid.UUID) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.refreshTTL)
	jti := uuid.New()

	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        jti.String(),
				Subject:   userID.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			TokenType: TypeRefresh,
		},
	)
	signed, err := token.SignedString([]byte(m.refreshKey))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	err = m.refreshRepo.Save(ctx, models.RefreshToken{
		ID:        jti,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Issue both tokens for the user
func (m *TokenManager) GeneratePair(ctx context.Context, userID uuid.UUID) (models.TokenPair, error) {
	access, err := m.IssueAccess(userID)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := m.IssueRefresh(ctx, userID)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Parse and validate a token of the expected type
// Signature is checked with the secret matching the type. Every failure
// (bad signature, wrong or missing type, missing subject, expired, malformed)
// collapses into apperrors.ErrInvalidToken so the caller can't probe which
// check rejected the token
func (m *TokenManager) Decode(tokenString string, expectedType string) (Claims, error) {
	var key string
	switch expectedType {
	case TypeAccess:
		key = m.accessKey
	case TypeRefresh:
		key = m.refreshKey
	default:
		return Claims{}, fmt.Errorf("unexpected token type %q: %w", expectedType, apperrors.ErrInvalidToken)
	}

	claims := Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("error while parsing or validating token: %v. Err: %w", err, apperrors.ErrInvalidToken)
	}

	if claims.TokenType != expectedType || claims.Subject == "" {
		return Claims{}, fmt.Errorf("token claims rejected. Err: %w", apperrors.ErrInvalidToken)
	}

	return claims, nil
}

// Rotate exchanges a valid refresh token for a fresh access+refresh pair
// and consumes the presented token. The old record is deleted before the new
// pair is issued: a crash in between invalidates the chain instead of
// permitting replay, the user has to login again.
func (m *TokenManager) Rotate(ctx context.Context, refresh string) (models.TokenPair, error) {
	claims, err := m.Decode(refresh, TypeRefresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh token jti missing or malformed. Err: %w", apperrors.ErrInvalidToken)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh token subject malformed. Err: %w", apperrors.ErrInvalidToken)
	}

	token, err := m.refreshRepo.Get(ctx, jti)
	switch {
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		// Never issued, rotated already or revoked. The caller can't tell which
		return models.TokenPair{}, fmt.Errorf("refresh token unknown. Err: %w", apperrors.ErrInvalidToken)
	case err != nil:
		return models.TokenPair{}, fmt.Errorf("error while looking up refresh token. Err: %w", err)
	}

	if token.UserID != userID {
		return models.TokenPair{}, fmt.Errorf("refresh token subject mismatch. Err: %w", apperrors.ErrInvalidToken)
	}

	// Consume the token. Single use is enforced here, before the replacement
	// exists
	if err := m.refreshRepo.Delete(ctx, jti); err != nil {
		return models.TokenPair{}, fmt.Errorf("error while consuming refresh token. Err: %w", err)
	}

	return m.GeneratePair(ctx, userID)
}

// Decode an access token and return its subject
// An empty token means the caller presented no credential at all, which is
// reported as apperrors.ErrNotAuthenticated rather than an invalid token
func (m *TokenManager) ResolveSubject(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, apperrors.ErrNotAuthenticated
	}

	claims, err := m.Decode(tokenString, TypeAccess)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("access token subject malformed. Err: %w", apperrors.ErrInvalidToken)
	}

	return userID, nil
}
