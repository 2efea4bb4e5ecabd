package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of ledger event.
type TransactionType string

const (
	TransactionTypeMint                TransactionType = "mint"
	TransactionTypeBurn                TransactionType = "burn"
	TransactionTypeTransfer            TransactionType = "transfer"
	TransactionTypePurchase            TransactionType = "purchase"
	TransactionTypeReward              TransactionType = "reward"
	TransactionTypeGift                TransactionType = "gift"
	TransactionTypeCertificateCreation TransactionType = "certificate_creation"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an append-only receipt of a ledger event. Debits carry a
// negative Amount, credits a positive one.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Symbol      string            `json:"symbol"`
	From        string            `json:"from,omitempty"`
	To          string            `json:"to,omitempty"`
	NFTID       string            `json:"nft_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
}

// IsDebit reports whether the entry removed tokens.
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// WelcomeBonusID is the deterministic id of a user's seeded welcome entry.
func WelcomeBonusID(userID uuid.UUID) string {
	return "welcome-" + userID.String()
}

// NewWelcomeBonus builds the synthetic entry that seeds an empty log.
func NewWelcomeBonus(userID uuid.UUID, amount decimal.Decimal, at time.Time) Transaction {
	return Transaction{
		ID:          WelcomeBonusID(userID),
		UserID:      userID,
		Type:        TransactionTypeReward,
		Amount:      amount.Round(AmountPlaces),
		Symbol:      TokenSymbol,
		To:          userID.String(),
		Timestamp:   at,
		Status:      TransactionStatusConfirmed,
		Description: "Welcome bonus",
	}
}

// MarshalJSON renders the signed amount with two fractional digits.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		Amount string `json:"amount"`
	}{
		alias:  alias(t),
		Amount: t.Amount.StringFixed(AmountPlaces),
	})
}
