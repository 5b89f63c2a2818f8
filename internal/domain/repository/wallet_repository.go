package repository

import (
	"context"

	"campusmarket/internal/domain/entity"
)

type WalletRepository interface {
	CreateWallet(ctx context.Context, wallet *entity.Wallet) error
	GetWalletByUserID(ctx context.Context, userID string) (*entity.Wallet, error)

	// UpdateWalletBalance applies a signed delta to the user's balance and
	// returns the updated wallet. Debits that would push the balance below
	// zero are rejected.
	UpdateWalletBalance(ctx context.Context, userID string, delta float64) (*entity.Wallet, error)
}
