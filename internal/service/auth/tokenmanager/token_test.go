package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/repository/postgres"
	"github.com/nkiryanov/authd/internal/testutil"
)

func newManager(t *testing.T, cfg Config, repo *postgres.RefreshTokenRepo) *TokenManager {
	t.Helper()

	if cfg.AccessSecretKey == "" {
		cfg.AccessSecretKey = "access-test-secret"
	}
	if cfg.RefreshSecretKey == "" {
		cfg.RefreshSecretKey = "refresh-test-secret"
	}

	m, err := New(cfg, repo)
	require.NoError(t, err, "token manager should be created without errors")
	return m
}

func Test_TokenManager_New(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		m := newManager(t, Config{}, nil)

		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL should be set")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("fail without secrets", func(t *testing.T) {
		_, err := New(Config{AccessSecretKey: "only-access"}, nil)
		require.Error(t, err, "missing refresh secret must be rejected")

		_, err = New(Config{RefreshSecretKey: "only-refresh"}, nil)
		require.Error(t, err, "missing access secret must be rejected")
	})
}

func Test_TokenManager_AccessTokens(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("issue and decode", func(t *testing.T) {
		m := newManager(t, Config{AccessTTL: 15 * time.Minute}, nil)

		token, err := m.IssueAccess(userID)
		require.NoError(t, err)
		require.NotEmpty(t, token.Value)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, time.Second)

		claims, err := m.Decode(token.Value, TypeAccess)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.Subject, "subject should be the user id")
		assert.Equal(t, TypeAccess, claims.TokenType)
		assert.Empty(t, claims.ID, "access tokens carry no jti")

		resolved, err := m.ResolveSubject(token.Value)
		require.NoError(t, err)
		assert.Equal(t, userID, resolved)
	})

	t.Run("decode fail cases", func(t *testing.T) {
		m := newManager(t, Config{}, nil)
		token, err := m.IssueAccess(userID)
		require.NoError(t, err)

		t.Run("wrong secret", func(t *testing.T) {
			other := newManager(t, Config{AccessSecretKey: "other-secret", RefreshSecretKey: "another"}, nil)

			_, err := other.Decode(token.Value, TypeAccess)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})

		t.Run("wrong expected type", func(t *testing.T) {
			_, err := m.Decode(token.Value, TypeRefresh)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})

		t.Run("unknown expected type", func(t *testing.T) {
			_, err := m.Decode(token.Value, "session")
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})

		t.Run("malformed token", func(t *testing.T) {
			_, err := m.Decode("not.a.jwt", TypeAccess)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})

		t.Run("expired token", func(t *testing.T) {
			expired := newManager(t, Config{AccessTTL: -time.Minute}, nil)
			token, err := expired.IssueAccess(userID)
			require.NoError(t, err)

			_, err = expired.Decode(token.Value, TypeAccess)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	})

	t.Run("resolve subject without token", func(t *testing.T) {
		m := newManager(t, Config{}, nil)

		_, err := m.ResolveSubject("")
		require.ErrorIs(t, err, apperrors.ErrNotAuthenticated, "no credential is not the same as a bad one")
		require.NotErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func Test_TokenManager_RefreshTokens(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Begin a db transaction, create a user in it and run fn with a manager
	// bound to the transaction. Rollback when the test stops.
	withTx := func(t *testing.T, cfg Config, fn func(m *TokenManager, repo *postgres.RefreshTokenRepo, user models.User)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			userRepo := &postgres.UserRepo{DB: tx}
			refreshRepo := &postgres.RefreshTokenRepo{DB: tx}

			user, err := userRepo.CreateUser(t.Context(), "tokens@example.com", "hashed-password")
			require.NoError(t, err)

			fn(newManager(t, cfg, refreshRepo), refreshRepo, user)
		})
	}

	t.Run("issue persists record", func(t *testing.T) {
		withTx(t, Config{RefreshTTL: 24 * time.Hour}, func(m *TokenManager, repo *postgres.RefreshTokenRepo, user models.User) {
			token, err := m.IssueRefresh(t.Context(), user.ID)
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), token.ExpiresAt, time.Second)

			claims, err := m.Decode(token.Value, TypeRefresh)
			require.NoError(t, err)
			require.Equal(t, TypeRefresh, claims.TokenType)
			require.Equal(t, user.ID.String(), claims.Subject)

			jti, err := uuid.Parse(claims.ID)
			require.NoError(t, err, "refresh token must carry a uuid jti")

			record, err := repo.Get(t.Context(), jti)
			require.NoError(t, err, "issued refresh token must be recorded")
			assert.Equal(t, user.ID, record.UserID)
			assert.WithinDuration(t, token.ExpiresAt, record.ExpiresAt, time.Second)
		})
	})

	t.Run("rotate ok", func(t *testing.T) {
		withTx(t, Config{}, func(m *TokenManager, repo *postgres.RefreshTokenRepo, user models.User) {
			old, err := m.IssueRefresh(t.Context(), user.ID)
			require.NoError(t, err)
			oldClaims, err := m.Decode(old.Value, TypeRefresh)
			require.NoError(t, err)

			pair, err := m.Rotate(t.Context(), old.Value)
			require.NoError(t, err)
			require.NotEmpty(t, pair.Access.Value)
			require.NotEmpty(t, pair.Refresh.Value)

			newClaims, err := m.Decode(pair.Refresh.Value, TypeRefresh)
			require.NoError(t, err)
			assert.NotEqual(t, oldClaims.ID, newClaims.ID, "rotation must mint a fresh jti")
			assert.Equal(t, user.ID.String(), newClaims.Subject)

			// Consumed record must be gone
			oldJti := uuid.MustParse(oldClaims.ID)
			_, err = repo.Get(t.Context(), oldJti)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("rotate is single use", func(t *testing.T) {
		withTx(t, Config{}, func(m *TokenManager, repo *postgres.RefreshTokenRepo, user models.User) {
			r1, err := m.IssueRefresh(t.Context(), user.ID)
			require.NoError(t, err)

			pair2, err := m.Rotate(t.Context(), r1.Value)
			require.NoError(t, err, "first rotation should succeed")

			_, err = m.Rotate(t.Context(), r1.Value)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken, "second rotation of the same token must fail")

			// The chain continues from the replacement
			pair3, err := m.Rotate(t.Context(), pair2.Refresh.Value)
			require.NoError(t, err, "rotating the replacement should succeed")
			require.NotEqual(t, pair2.Refresh.Value, pair3.Refresh.Value)
		})
	})

	t.Run("rotate rejects subject mismatch", func(t *testing.T) {
		withTx(t, Config{RefreshSecretKey: "refresh-test-secret"}, func(m *TokenManager, repo *postgres.RefreshTokenRepo, user models.User) {
			issued, err := m.IssueRefresh(t.Context(), user.ID)
			require.NoError(t, err)
			claims, err := m.Decode(issued.Value, TypeRefresh)
			require.NoError(t, err)

			// Forge a validly signed token reusing the recorded jti but
			// substituting another subject
			forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
				RegisteredClaims: jwt.RegisteredClaims{
					ID:        claims.ID,
					Subject:   uuid.NewString(),
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
				TokenType: TypeRefresh,
			})
			forgedString, err := forged.SignedString([]byte("refresh-test-secret"))
			require.NoError(t, err)

			_, err = m.Rotate(t.Context(), forgedString)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)

			// The record must survive a rejected attempt
			_, err = repo.Get(t.Context(), uuid.MustParse(claims.ID))
			require.NoError(t, err)
		})
	})

	t.Run("rotate rejects token without jti", func(t *testing.T) {
		withTx(t, Config{RefreshSecretKey: "refresh-test-secret"}, func(m *TokenManager, repo *postgres.RefreshTokenRepo, user models.User) {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   user.ID.String(),
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
				TokenType: TypeRefresh,
			})
			signed, err := token.SignedString([]byte("refresh-test-secret"))
			require.NoError(t, err)

			_, err = m.Rotate(t.Context(), signed)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	})

	t.Run("rotate rejects access token", func(t *testing.T) {
		withTx(t, Config{}, func(m *TokenManager, repo *postgres.RefreshTokenRepo, user models.User) {
			access, err := m.IssueAccess(user.ID)
			require.NoError(t, err)

			_, err = m.Rotate(t.Context(), access.Value)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	})

	t.Run("generate pair", func(t *testing.T) {
		withTx(t, Config{}, func(m *TokenManager, repo *postgres.RefreshTokenRepo, user models.User) {
			pair1, err := m.GeneratePair(t.Context(), user.ID)
			require.NoError(t, err)
			pair2, err := m.GeneratePair(t.Context(), user.ID)
			require.NoError(t, err)

			assert.NotEqual(t, pair1.Refresh.Value, pair2.Refresh.Value, "refresh tokens should be different")
		})
	})
}
