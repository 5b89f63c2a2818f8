package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"campusmarket/internal/domain/entity"
	"campusmarket/internal/domain/repository"
	"campusmarket/internal/infrastructure/storage"
	"campusmarket/pkg/errors"
)

const (
	transactionNamespace = "transactions"
	ledgerKey            = "ledger"
)

type kvTransactionRepository struct {
	store *storage.Store
}

func NewKVTransactionRepository(store *storage.Store) repository.TransactionRepository {
	return &kvTransactionRepository{store: store}
}

func (r *kvTransactionRepository) load(ctx context.Context) ([]*entity.Transaction, error) {
	var transactions []*entity.Transaction
	if _, err := r.store.Get(ctx, transactionNamespace, ledgerKey, &transactions); err != nil {
		return nil, errors.Internal("Failed to load transaction ledger", err)
	}
	return transactions, nil
}

func (r *kvTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now()
	}

	transactions, err := r.load(ctx)
	if err != nil {
		return err
	}

	transactions = append(transactions, transaction)
	if err := r.store.Set(ctx, transactionNamespace, ledgerKey, transactions); err != nil {
		return errors.Internal("Failed to append transaction", err)
	}
	return nil
}

func (r *kvTransactionRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*entity.Transaction, error) {
	return r.filter(ctx, func(t *entity.Transaction) bool { return t.BuyerID == buyerID }, true)
}

func (r *kvTransactionRepository) ListBySeller(ctx context.Context, sellerID string) ([]*entity.Transaction, error) {
	return r.filter(ctx, func(t *entity.Transaction) bool { return t.SellerID == sellerID }, true)
}

func (r *kvTransactionRepository) ListByItem(ctx context.Context, itemID string) ([]*entity.Transaction, error) {
	return r.filter(ctx, func(t *entity.Transaction) bool { return t.ItemID == itemID }, false)
}

func (r *kvTransactionRepository) filter(ctx context.Context, match func(*entity.Transaction) bool, newestFirst bool) ([]*entity.Transaction, error) {
	transactions, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var result []*entity.Transaction
	for _, t := range transactions {
		if match(t) {
			result = append(result, t)
		}
	}

	if newestFirst {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	}
	return result, nil
}

func (r *kvTransactionRepository) Trim(ctx context.Context, keep int) error {
	transactions, err := r.load(ctx)
	if err != nil {
		return err
	}
	if keep < 0 || len(transactions) <= keep {
		return nil
	}

	trimmed := transactions[len(transactions)-keep:]
	if err := r.store.Set(ctx, transactionNamespace, ledgerKey, trimmed); err != nil {
		return errors.Internal("Failed to trim transaction ledger", err)
	}
	return nil
}
