package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"treevut/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserRepository keeps auth records in the key-value store: the user
// document under its id plus an email index key for login lookups.
type UserRepository struct {
	store  Store
	logger *zap.Logger
}

func NewUserRepository(store Store, logger *zap.Logger) *UserRepository {
	return &UserRepository{store: store, logger: logger}
}

func userKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

func emailKey(email string) string {
	return fmt.Sprintf("%s:user-email:%s", keyPrefix, strings.ToLower(email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, userKey(user.ID), string(data)); err != nil {
		return err
	}
	return r.store.Set(ctx, emailKey(user.Email), user.ID.String())
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	value, found, err := r.store.Get(ctx, userKey(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	var user models.User
	if err := json.Unmarshal([]byte(value), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	value, found, err := r.store.Get(ctx, emailKey(email))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("corrupt email index for %s: %w", email, err)
	}
	return r.GetByID(ctx, id)
}
