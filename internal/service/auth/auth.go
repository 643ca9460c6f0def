package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/repository"
	"github.com/nkiryanov/authd/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultRefreshCookieName = "refresh_token"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks and must report (not panic on)
	// malformed stored hashes
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during registration or login
	// BcryptHasher is used if not set
	Hasher PasswordHasher

	// Transport details for issued tokens
	// Defaults are used for empty fields
	AccessHeaderName  string
	AccessAuthScheme  string
	RefreshCookieName string
}

// AuthService orchestrates credential verification and token issuance
type AuthService struct {
	token    *tokenmanager.TokenManager
	hasher   PasswordHasher
	userRepo repository.UserRepo

	accessHeaderName  string
	accessAuthScheme  string
	refreshCookieName string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	setDefaultString := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefaultString(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefaultString(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefaultString(&cfg.RefreshCookieName, defaultRefreshCookieName)

	return &AuthService{
		token:             token,
		hasher:            hasher,
		userRepo:          userRepo,
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		refreshCookieName: cfg.RefreshCookieName,
	}, nil
}

// Register creates a user and logs them in
// Returns apperrors.ErrUserAlreadyExists if the email is taken, the store
// enforces uniqueness
func (s *AuthService) Register(ctx context.Context, email string, password string) (models.TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, hash)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, user.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// Authenticate verifies credentials and returns the user
// Unknown email and wrong password both come back as
// apperrors.ErrInvalidCredentials
func (s *AuthService) Authenticate(ctx context.Context, email string, password string) (models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		// Burn a compare anyway so an unknown email costs the same as a
		// wrong password
		_ = s.hasher.Compare("", password)
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates the user and issues a token pair
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.TokenPair, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, user.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// RefreshPair rotates the presented refresh token into a new pair
// Any validation failure returns apperrors.ErrInvalidToken
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	return s.token.Rotate(ctx, refresh)
}

// ChangePassword verifies the current password before storing the new hash
// Returns apperrors.ErrIncorrectPassword if the check fails.
// Outstanding refresh tokens stay valid after the change.
// TODO: revoke them here, needs RefreshTokenRepo.DeleteByUserID
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword string, newPassword string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, currentPassword); err != nil {
		return apperrors.ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, hash)
}

// GetUserFromRequest authenticates a request by its bearer access token
func (s *AuthService) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	access := s.readAccessString(r)

	userID, err := s.token.ResolveSubject(access)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, apperrors.ErrInvalidToken
		}
		return models.User{}, err
	}

	return user, nil
}

// GetRefreshString extracts the refresh token from the request cookie
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil {
		return "", apperrors.ErrNotAuthenticated
	}
	return cookie.Value, nil
}

// SetTokenPairToResponse writes the access token to the auth header and the
// refresh token to an HttpOnly SameSite=Lax cookie living as long as the
// token itself
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	http.SetCookie(w, s.refreshCookie(pair.Refresh))
}

// SetTokenPairToRequest mirrors SetTokenPairToResponse for outgoing requests
// Mostly useful in tests
func (s *AuthService) SetTokenPairToRequest(r *http.Request, pair models.TokenPair) {
	r.Header.Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	r.AddCookie(s.refreshCookie(pair.Refresh))
}

func (s *AuthService) refreshCookie(refresh models.IssuedToken) *http.Cookie {
	return &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    refresh.Value,
		Path:     "/",
		MaxAge:   int(time.Until(refresh.ExpiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *AuthService) readAccessString(r *http.Request) string {
	scheme, token, found := strings.Cut(r.Header.Get(s.accessHeaderName), " ")
	if !found || !strings.EqualFold(scheme, s.accessAuthScheme) {
		return ""
	}
	return token
}
