package repository

import (
	"context"

	"campusmarket/internal/domain/entity"
)

// TransactionRepository is append-only: entries are never updated or removed
// individually, only bulk-trimmed by retention.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *entity.Transaction) error
	ListByBuyer(ctx context.Context, buyerID string) ([]*entity.Transaction, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*entity.Transaction, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.Transaction, error)

	// Trim drops the oldest entries beyond keep.
	Trim(ctx context.Context, keep int) error
}
