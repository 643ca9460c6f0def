package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/testutil"
)

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withRepo := func(t *testing.T, fn func(repo *RefreshTokenRepo, user models.User)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			userRepo := &UserRepo{DB: tx}
			user, err := userRepo.CreateUser(t.Context(), "tokens@example.com", "hashed")
			require.NoError(t, err)

			fn(&RefreshTokenRepo{DB: tx}, user)
		})
	}

	newToken := func(user models.User, ttl time.Duration) models.RefreshToken {
		now := time.Now().Truncate(time.Second)
		return models.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
	}

	t.Run("save and get", func(t *testing.T) {
		withRepo(t, func(repo *RefreshTokenRepo, user models.User) {
			token := newToken(user, 24*time.Hour)

			err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.Get(t.Context(), token.ID)
			require.NoError(t, err)
			assert.Equal(t, token.ID, got.ID)
			assert.Equal(t, user.ID, got.UserID)
			assert.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Second)
		})
	})

	t.Run("get expired record still returns it", func(t *testing.T) {
		withRepo(t, func(repo *RefreshTokenRepo, user models.User) {
			token := newToken(user, -time.Hour)
			require.NoError(t, repo.Save(t.Context(), token))

			got, err := repo.Get(t.Context(), token.ID)
			require.NoError(t, err, "expiry is the token manager's check, not the repo's")
			assert.Equal(t, token.ID, got.ID)
		})
	})

	t.Run("get unknown id", func(t *testing.T) {
		withRepo(t, func(repo *RefreshTokenRepo, user models.User) {
			_, err := repo.Get(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("save duplicate id fails", func(t *testing.T) {
		withRepo(t, func(repo *RefreshTokenRepo, user models.User) {
			token := newToken(user, 24*time.Hour)
			require.NoError(t, repo.Save(t.Context(), token))

			err := repo.Save(t.Context(), token)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenExists, "must never silently overwrite")
		})
	})

	t.Run("delete consumes record", func(t *testing.T) {
		withRepo(t, func(repo *RefreshTokenRepo, user models.User) {
			token := newToken(user, 24*time.Hour)
			require.NoError(t, repo.Save(t.Context(), token))

			err := repo.Delete(t.Context(), token.ID)
			require.NoError(t, err)

			_, err = repo.Get(t.Context(), token.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		withRepo(t, func(repo *RefreshTokenRepo, user models.User) {
			err := repo.Delete(t.Context(), uuid.New())
			require.NoError(t, err, "deleting a missing id is not an error")
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		withRepo(t, func(repo *RefreshTokenRepo, user models.User) {
			expired := newToken(user, -time.Hour)
			live := newToken(user, 24*time.Hour)
			require.NoError(t, repo.Save(t.Context(), expired))
			require.NoError(t, repo.Save(t.Context(), live))

			deleted, err := repo.DeleteExpired(t.Context(), time.Now())
			require.NoError(t, err)
			assert.EqualValues(t, 1, deleted)

			_, err = repo.Get(t.Context(), expired.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)

			_, err = repo.Get(t.Context(), live.ID)
			require.NoError(t, err, "live records must survive the sweep")
		})
	})
}
