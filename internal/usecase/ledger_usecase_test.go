package usecase

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kvrepo "campusmarket/internal/adapter/repository"
	"campusmarket/internal/domain/entity"
	"campusmarket/internal/domain/repository"
	"campusmarket/internal/infrastructure/storage"
	"campusmarket/pkg/errors"
)

type ledgerFixture struct {
	uc              *LedgerUseCase
	transactionRepo repository.TransactionRepository
	walletRepo      repository.WalletRepository
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	transactionRepo := kvrepo.NewKVTransactionRepository(store)
	walletRepo := kvrepo.NewKVWalletRepository(store)
	return &ledgerFixture{
		uc:              NewLedgerUseCase(transactionRepo, walletRepo),
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
	}
}

func (f *ledgerFixture) seedWallet(t *testing.T, userID string, balance float64) {
	t.Helper()
	require.NoError(t, f.walletRepo.CreateWallet(context.Background(), &entity.Wallet{
		UserID:  userID,
		Balance: balance,
	}))
}

func purchaseInput() ProcessPurchaseInput {
	return ProcessPurchaseInput{
		BuyerID:   "user_a",
		SellerID:  "user_b",
		ItemID:    "item_1",
		ItemTitle: "road bike",
		Amount:    100,
	}
}

func TestProcessPurchaseMovesMoneyAndRecordsEntry(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.seedWallet(t, "user_a", 200)
	f.seedWallet(t, "user_b", 50)

	transaction, err := f.uc.ProcessPurchase(ctx, purchaseInput())
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionStatusCompleted, transaction.Status)
	assert.Equal(t, entity.TransactionTypePurchase, transaction.Type)

	buyer, err := f.uc.GetWallet(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, 100.0, buyer.Balance)

	seller, err := f.uc.GetWallet(ctx, "user_b")
	require.NoError(t, err)
	assert.Equal(t, 150.0, seller.Balance)

	purchases, err := f.uc.GetPurchases(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, transaction.ID, purchases[0].ID)

	sales, err := f.uc.GetSales(ctx, "user_b")
	require.NoError(t, err)
	assert.Len(t, sales, 1)

	byItem, err := f.uc.GetItemTransactions(ctx, "item_1")
	require.NoError(t, err)
	assert.Len(t, byItem, 1)
}

func TestProcessPurchaseRejectsInvalidInput(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.seedWallet(t, "user_a", 200)

	cases := []ProcessPurchaseInput{
		{BuyerID: "user_a", SellerID: "user_a", ItemID: "item_1", Amount: 100},
		{BuyerID: "user_a", SellerID: "user_b", ItemID: "item_1", Amount: 0},
		{BuyerID: "user_a", SellerID: "user_b", ItemID: "item_1", Amount: -5},
		{BuyerID: "user_a", SellerID: "user_b", Amount: 100},
		{SellerID: "user_b", ItemID: "item_1", Amount: 100},
	}
	for _, input := range cases {
		_, err := f.uc.ProcessPurchase(ctx, input)
		assert.True(t, errors.Is(err, "BAD_REQUEST"), "input %+v", input)
	}

	// Nothing reached the ledger.
	purchases, err := f.uc.GetPurchases(ctx, "user_a")
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestProcessPurchaseInsufficientBalance(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.seedWallet(t, "user_a", 40)
	f.seedWallet(t, "user_b", 0)

	_, err := f.uc.ProcessPurchase(ctx, purchaseInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	buyer, err := f.uc.GetWallet(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, 40.0, buyer.Balance)

	purchases, err := f.uc.GetPurchases(ctx, "user_a")
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

// flakyWalletRepo wraps the real repository but fails configured credits,
// to exercise the compensation paths.
type flakyWalletRepo struct {
	repository.WalletRepository
	failCreditTo map[string]bool
}

func (r *flakyWalletRepo) UpdateWalletBalance(ctx context.Context, userID string, delta float64) (*entity.Wallet, error) {
	if delta > 0 && r.failCreditTo[userID] {
		return nil, errors.Internal("Wallet write rejected", nil)
	}
	return r.WalletRepository.UpdateWalletBalance(ctx, userID, delta)
}

func TestProcessPurchaseCompensatesFailedCredit(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.seedWallet(t, "user_a", 200)
	f.seedWallet(t, "user_b", 0)

	uc := NewLedgerUseCase(f.transactionRepo, &flakyWalletRepo{
		WalletRepository: f.walletRepo,
		failCreditTo:     map[string]bool{"user_b": true},
	})

	_, err := uc.ProcessPurchase(ctx, purchaseInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, "INTERNAL_ERROR"))

	// The refund restored the buyer and nothing hit the ledger.
	buyer, err := f.uc.GetWallet(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, 200.0, buyer.Balance)

	purchases, err := f.uc.GetPurchases(ctx, "user_a")
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestProcessPurchaseRecordsStuckCompensation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.seedWallet(t, "user_a", 200)
	f.seedWallet(t, "user_b", 0)

	uc := NewLedgerUseCase(f.transactionRepo, &flakyWalletRepo{
		WalletRepository: f.walletRepo,
		failCreditTo:     map[string]bool{"user_a": true, "user_b": true},
	})

	_, err := uc.ProcessPurchase(ctx, purchaseInput())
	require.Error(t, err)

	// The stuck state is observable in the ledger for later reconciliation.
	purchases, err := f.uc.GetPurchases(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, entity.TransactionStatusCompensationFailed, purchases[0].Status)

	buyer, err := f.uc.GetWallet(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, 100.0, buyer.Balance, "debit stands until reconciliation")
}

func TestOpenWalletIsIdempotent(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	first, err := f.uc.OpenWallet(ctx, "user_a", "CNY")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "active", first.Status)

	second, err := f.uc.OpenWallet(ctx, "user_a", "CNY")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}
