package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campusmarket/internal/domain/entity"
	"campusmarket/internal/domain/repository"
	"campusmarket/internal/infrastructure/storage"
	"campusmarket/pkg/errors"
)

const walletNamespace = "wallets"

type kvWalletRepository struct {
	store *storage.Store
}

func NewKVWalletRepository(store *storage.Store) repository.WalletRepository {
	return &kvWalletRepository{store: store}
}

func (r *kvWalletRepository) CreateWallet(ctx context.Context, wallet *entity.Wallet) error {
	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}

	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	if wallet.Status == "" {
		wallet.Status = "active"
	}

	existing := &entity.Wallet{}
	found, err := r.store.Get(ctx, walletNamespace, wallet.UserID, existing)
	if err != nil {
		return errors.Internal("Failed to check wallet", err)
	}
	if found {
		return errors.Conflict("Wallet already exists for user")
	}

	if err := r.store.Set(ctx, walletNamespace, wallet.UserID, wallet); err != nil {
		return errors.Internal("Failed to create wallet", err)
	}
	return nil
}

func (r *kvWalletRepository) GetWalletByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	var wallet entity.Wallet
	found, err := r.store.Get(ctx, walletNamespace, userID, &wallet)
	if err != nil {
		return nil, errors.Internal("Failed to get wallet", err)
	}
	if !found {
		return nil, errors.NotFound("Wallet", nil)
	}
	return &wallet, nil
}

func (r *kvWalletRepository) UpdateWalletBalance(ctx context.Context, userID string, delta float64) (*entity.Wallet, error) {
	wallet, err := r.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if wallet.Balance+delta < 0 {
		return nil, errors.BadRequest("Insufficient balance", nil)
	}

	wallet.Balance += delta
	wallet.LastTxnAt = time.Now()
	wallet.UpdatedAt = wallet.LastTxnAt

	if err := r.store.Set(ctx, walletNamespace, userID, wallet); err != nil {
		return nil, errors.Internal("Failed to update wallet balance", err)
	}
	return wallet, nil
}
