package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"freedash/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with default preferences and a unique subject and email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	n := nextID()
	return CreateTestUserWith(t, db, fmt.Sprintf("auth0|test%d", n), fmt.Sprintf("user%d@test.com", n))
}

// CreateTestUserWith creates a user for the given subject and email.
func CreateTestUserWith(t *testing.T, db *gorm.DB, subject, email string) *models.User {
	t.Helper()

	user := &models.User{
		Auth0ID:          subject,
		Email:            email,
		Timezone:         models.DefaultTimezone,
		DefaultCurrency:  models.DefaultCurrency,
		OnboardingStatus: models.OnboardingIncomplete,
		Preferences:      models.NewDefaultPreferences(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestPlaidItem links an item with the given stored access token.
func CreateTestPlaidItem(t *testing.T, db *gorm.DB, userID, accessToken string) *models.PlaidItem {
	t.Helper()

	item := &models.PlaidItem{
		UserID:      userID,
		ItemID:      fmt.Sprintf("item-%d", nextID()),
		AccessToken: accessToken,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test plaid item: %v", err)
	}
	return item
}

// CreateTestAccount creates a checking account for the given item.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID, itemID, plaidAccountID string) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:         userID,
		PlaidItemID:    itemID,
		PlaidAccountID: plaidAccountID,
		Name:           fmt.Sprintf("Test Account %d", nextID()),
		Type:           models.AccountTypeChecking,
		Balance:        decimal.NewFromInt(100),
		LastSynced:     time.Now().UTC(),
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestTransaction creates a posted expense on the given day.
func CreateTestTransaction(t *testing.T, db *gorm.DB, account *models.Account, plaidTransactionID string, date time.Time, amount string) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		UserID:             account.UserID,
		AccountID:          account.ID,
		PlaidTransactionID: plaidTransactionID,
		Amount:             decimal.RequireFromString(amount),
		Currency:           "USD",
		Date:               date,
		PlaidCategory:      []string{"Shops"},
		Status:             models.TransactionStatusPosted,
		Type:               models.TransactionTypeExpense,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}
