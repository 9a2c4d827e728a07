package repository

import (
	"context"
	"testing"
	"time"

	"treevut/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserRepository(t *testing.T) {
	store, err := NewInMemoryStore(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repo := NewUserRepository(store, zap.NewNop())
	ctx := context.Background()

	user := &models.User{
		ID:        uuid.New(),
		Username:  "maria",
		Email:     "Maria@Example.pe",
		Password:  "$2a$10$hash",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Create(ctx, user))

	t.Run("lookup by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, got.Username)
		assert.Equal(t, user.Password, got.Password, "hash round-trips for login checks")
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "maria@example.pe")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetByEmail(ctx, "nadie@example.pe")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
