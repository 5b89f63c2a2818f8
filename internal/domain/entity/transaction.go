package entity

import "time"

const (
	TransactionTypePurchase = "purchase"
)

const (
	TransactionStatusCompleted          = "completed"
	TransactionStatusCompensationFailed = "compensation_failed"
)

// Transaction is an append-only ledger entry. Fields are immutable once the
// entry is created; corrections require a new compensating record.
type Transaction struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	ItemID    string    `json:"item_id"`
	ItemTitle string    `json:"item_title,omitempty"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
