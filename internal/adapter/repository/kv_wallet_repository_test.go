package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/internal/domain/entity"
	"campusmarket/internal/infrastructure/storage"
	"campusmarket/pkg/errors"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWalletBalanceUpdates(t *testing.T) {
	repo := NewKVWalletRepository(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateWallet(ctx, &entity.Wallet{UserID: "user_a", Balance: 100}))

	wallet, err := repo.UpdateWalletBalance(ctx, "user_a", -30)
	require.NoError(t, err)
	assert.Equal(t, 70.0, wallet.Balance)

	wallet, err = repo.UpdateWalletBalance(ctx, "user_a", 10)
	require.NoError(t, err)
	assert.Equal(t, 80.0, wallet.Balance)

	_, err = repo.UpdateWalletBalance(ctx, "user_a", -500)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	wallet, err = repo.GetWalletByUserID(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, 80.0, wallet.Balance, "rejected debit must not change the balance")
}

func TestWalletCreateConflictsAndMissingLookup(t *testing.T) {
	repo := NewKVWalletRepository(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateWallet(ctx, &entity.Wallet{UserID: "user_a"}))

	err := repo.CreateWallet(ctx, &entity.Wallet{UserID: "user_a"})
	assert.True(t, errors.Is(err, "CONFLICT"))

	_, err = repo.GetWalletByUserID(ctx, "user_missing")
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestTransactionLedgerTrim(t *testing.T) {
	repo := NewKVTransactionRepository(newTestStore(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Transaction{
			BuyerID:  "user_a",
			SellerID: "user_b",
			ItemID:   "item_1",
			Amount:   10,
			Type:     entity.TransactionTypePurchase,
			Status:   entity.TransactionStatusCompleted,
		}))
	}

	require.NoError(t, repo.Trim(ctx, 3))

	all, err := repo.ListByItem(ctx, "item_1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestChatRepositoryOwnerScoping(t *testing.T) {
	repo := NewKVChatRepository(newTestStore(t))
	ctx := context.Background()
	chatID := entity.ChatIDFor("user_a", "user_b")

	require.NoError(t, repo.CreateChat(ctx, &entity.Chat{
		ID:      chatID,
		OwnerID: "user_a",
		Peer:    entity.ChatPeer{ID: "user_b"},
	}))
	require.NoError(t, repo.CreateChat(ctx, &entity.Chat{
		ID:      chatID,
		OwnerID: "user_b",
		Peer:    entity.ChatPeer{ID: "user_a"},
	}))

	require.NoError(t, repo.AppendMessage(ctx, "user_a", &entity.Message{
		ChatID:   chatID,
		SenderID: "user_a",
		Status:   entity.MessageStatusSent,
	}))

	a, err := repo.ListMessages(ctx, "user_a", chatID)
	require.NoError(t, err)
	assert.Len(t, a, 1)

	b, err := repo.ListMessages(ctx, "user_b", chatID)
	require.NoError(t, err)
	assert.Empty(t, b)

	chatsA, err := repo.ListChats(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, chatsA, 1)
	assert.Equal(t, "user_b", chatsA[0].Peer.ID)
}
