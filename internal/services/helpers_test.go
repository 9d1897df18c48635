package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"freedash/internal/aggregator"
	"freedash/internal/config"
	"freedash/internal/models"
	"freedash/internal/secrets"
)

var testWindow = aggregator.DateRange{
	Start: testDate("2024-01-01"),
	End:   testDate("2024-12-31"),
}

func testDate(s string) time.Time {
	d, err := time.Parse(config.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func extAccount(id, accountType, balance string) aggregator.ExternalAccount {
	return aggregator.ExternalAccount{
		ExternalID:     id,
		Name:           "Account " + id,
		Type:           accountType,
		CurrentBalance: decimal.RequireFromString(balance),
	}
}

func extTxn(id, accountID, amount, date, status string, categories ...string) aggregator.ExternalTransaction {
	return aggregator.ExternalTransaction{
		ExternalID:        id,
		AccountExternalID: accountID,
		Amount:            decimal.RequireFromString(amount),
		Currency:          "USD",
		Date:              date,
		Categories:        categories,
		Status:            status,
	}
}

func testSealer(t *testing.T) *secrets.Sealer {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	s, err := secrets.NewSealer(key)
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}
	return s
}

type svcDeps struct {
	db      *gorm.DB
	user    *models.User
	account *models.Account
}
