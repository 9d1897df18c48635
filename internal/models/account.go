package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType represents the local account vocabulary.
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCredit   AccountType = "credit"
)

// Account is a bank account reported by the aggregator. PlaidAccountID is the
// upsert key; name, official name and type are fixed at creation.
type Account struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	PlaidItemID    string          `gorm:"type:uuid;not null;index" json:"plaid_item_id"`
	PlaidAccountID string          `gorm:"uniqueIndex;not null" json:"plaid_account_id"`
	Name           string          `gorm:"not null" json:"name"`
	OfficialName   *string         `json:"official_name"`
	Type           AccountType     `gorm:"not null" json:"type"`
	Balance        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	LastSynced     time.Time       `gorm:"not null" json:"last_synced"`

	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"-"`
}
