package usecase

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"campusmarket/internal/domain/entity"
	"campusmarket/internal/domain/repository"
	"campusmarket/pkg/errors"
	"campusmarket/pkg/logger"
)

// Only this many ledger entries are retained locally; older entries live on
// the server.
const ledgerRetention = 500

// LedgerUseCase runs purchases against the wallet balances and records every
// completed purchase as an immutable ledger entry.
type LedgerUseCase struct {
	transactionRepo repository.TransactionRepository
	walletRepo      repository.WalletRepository
	validate        *validator.Validate
}

func NewLedgerUseCase(transactionRepo repository.TransactionRepository, walletRepo repository.WalletRepository) *LedgerUseCase {
	return &LedgerUseCase{
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		validate:        validator.New(),
	}
}

type ProcessPurchaseInput struct {
	BuyerID   string  `validate:"required"`
	SellerID  string  `validate:"required,nefield=BuyerID"`
	ItemID    string  `validate:"required"`
	Amount    float64 `validate:"required,gt=0"`
	ItemTitle string
}

// ProcessPurchase debits the buyer, credits the seller, and appends a ledger
// entry. The debit and credit are separate wallet writes: if the credit fails
// the debit is compensated with a refund, and if the refund itself fails the
// stuck state is recorded in the ledger so it can be reconciled later.
func (uc *LedgerUseCase) ProcessPurchase(ctx context.Context, input ProcessPurchaseInput) (*entity.Transaction, error) {
	if err := uc.validate.Struct(input); err != nil {
		return nil, errors.BadRequest("Invalid purchase request", err)
	}

	buyerWallet, err := uc.walletRepo.GetWalletByUserID(ctx, input.BuyerID)
	if err != nil {
		return nil, err
	}
	if buyerWallet.Balance < input.Amount {
		return nil, errors.BadRequest("Insufficient balance", nil)
	}

	if _, err := uc.walletRepo.UpdateWalletBalance(ctx, input.BuyerID, -input.Amount); err != nil {
		return nil, err
	}

	if _, err := uc.walletRepo.UpdateWalletBalance(ctx, input.SellerID, input.Amount); err != nil {
		logger.Error("Failed to credit seller %s for item %s: %v", input.SellerID, input.ItemID, err)

		if _, refundErr := uc.walletRepo.UpdateWalletBalance(ctx, input.BuyerID, input.Amount); refundErr != nil {
			logger.Error("Compensating refund to buyer %s failed: %v", input.BuyerID, refundErr)
			stuck := uc.newEntry(input, entity.TransactionStatusCompensationFailed)
			if recordErr := uc.transactionRepo.Create(ctx, stuck); recordErr != nil {
				logger.Error("Failed to record stuck transaction %s: %v", stuck.ID, recordErr)
			}
			return nil, errors.Internal("Purchase failed and refund could not be applied", refundErr)
		}
		return nil, errors.Internal("Failed to credit seller", err)
	}

	transaction := uc.newEntry(input, entity.TransactionStatusCompleted)
	if err := uc.transactionRepo.Create(ctx, transaction); err != nil {
		return nil, errors.Internal("Failed to record transaction", err)
	}

	if err := uc.transactionRepo.Trim(ctx, ledgerRetention); err != nil {
		logger.Warn("Failed to trim transaction ledger: %v", err)
	}

	logger.Info("Purchase %s completed: %s -> %s, amount %.2f", transaction.ID, input.BuyerID, input.SellerID, input.Amount)
	return transaction, nil
}

func (uc *LedgerUseCase) GetPurchases(ctx context.Context, buyerID string) ([]*entity.Transaction, error) {
	return uc.transactionRepo.ListByBuyer(ctx, buyerID)
}

func (uc *LedgerUseCase) GetSales(ctx context.Context, sellerID string) ([]*entity.Transaction, error) {
	return uc.transactionRepo.ListBySeller(ctx, sellerID)
}

func (uc *LedgerUseCase) GetItemTransactions(ctx context.Context, itemID string) ([]*entity.Transaction, error) {
	return uc.transactionRepo.ListByItem(ctx, itemID)
}

// OpenWallet creates a zero-balance wallet for the user if one does not
// already exist.
func (uc *LedgerUseCase) OpenWallet(ctx context.Context, userID, currency string) (*entity.Wallet, error) {
	if existing, err := uc.walletRepo.GetWalletByUserID(ctx, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	wallet := &entity.Wallet{
		ID:        uuid.New().String(),
		UserID:    userID,
		Currency:  currency,
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := uc.walletRepo.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (uc *LedgerUseCase) GetWallet(ctx context.Context, userID string) (*entity.Wallet, error) {
	return uc.walletRepo.GetWalletByUserID(ctx, userID)
}

func (uc *LedgerUseCase) newEntry(input ProcessPurchaseInput, status string) *entity.Transaction {
	return &entity.Transaction{
		ID:        uuid.New().String(),
		BuyerID:   input.BuyerID,
		SellerID:  input.SellerID,
		ItemID:    input.ItemID,
		ItemTitle: input.ItemTitle,
		Amount:    input.Amount,
		Type:      entity.TransactionTypePurchase,
		Status:    status,
		CreatedAt: time.Now(),
	}
}
