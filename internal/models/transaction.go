package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// TransactionType is derived locally from the aggregator's category list.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is part of the local vocabulary.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus mirrors the aggregator's settlement state.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusPosted  TransactionStatus = "posted"
)

// Transaction is one bank transaction. PlaidTransactionID is the upsert key;
// only amount, status and date change on re-sync.
type Transaction struct {
	Base
	UserID             string            `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID          string            `gorm:"type:uuid;not null;index" json:"account_id"`
	PlaidTransactionID string            `gorm:"uniqueIndex;not null" json:"plaid_transaction_id"`
	Amount             decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency           string            `gorm:"size:3;not null" json:"currency"`
	Date               time.Time         `gorm:"type:date;not null;index" json:"date"`
	Merchant           *string           `json:"merchant"`
	PlaidCategory      pq.StringArray    `gorm:"type:text[]" json:"plaid_category"`
	Status             TransactionStatus `gorm:"not null" json:"status"`
	Type               TransactionType   `gorm:"not null" json:"type"`

	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
