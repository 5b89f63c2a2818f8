package repository

import (
	"context"
	"time"

	"campusmarket/internal/domain/entity"
	"campusmarket/internal/domain/repository"
	"campusmarket/internal/infrastructure/storage"
	"campusmarket/pkg/errors"
)

const userNamespace = "users"

type kvUserRepository struct {
	store *storage.Store
}

func NewKVUserRepository(store *storage.Store) repository.UserRepository {
	return &kvUserRepository{store: store}
}

func (r *kvUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	found, err := r.store.Get(ctx, userNamespace, id, &user)
	if err != nil {
		return nil, errors.Internal("Failed to get user", err)
	}
	if !found {
		return nil, errors.NotFound("User", nil)
	}
	return &user, nil
}

func (r *kvUserRepository) Save(ctx context.Context, user *entity.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()

	if err := r.store.Set(ctx, userNamespace, user.ID, user); err != nil {
		return errors.Internal("Failed to save user", err)
	}
	return nil
}
