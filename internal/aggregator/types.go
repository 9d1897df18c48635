// Package aggregator defines the banking-aggregator contract consumed by the
// sync flow and its Plaid implementation.
package aggregator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status strings reported for external transactions.
const (
	StatusPending = "pending"
	StatusPosted  = "posted"
)

// ExternalAccount is an account as reported by the aggregator. Type uses the
// aggregator's own vocabulary and is mapped to the local enum by the caller.
type ExternalAccount struct {
	ExternalID     string
	Name           string
	OfficialName   *string
	Type           string
	CurrentBalance decimal.Decimal
}

// ExternalTransaction is a transaction as reported by the aggregator.
type ExternalTransaction struct {
	ExternalID        string
	AccountExternalID string
	Amount            decimal.Decimal
	Currency          string
	// Date is the aggregator's calendar date, YYYY-MM-DD.
	Date         string
	MerchantName *string
	Categories   []string
	Status       string
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ItemCredentials is the result of a public token exchange.
type ItemCredentials struct {
	AccessToken string
	ItemID      string
}

// LinkToken initializes the client-side bank linking flow.
type LinkToken struct {
	Token      string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
}

// Client is the aggregator surface used by the sync orchestrator. Every call
// is a single attempt.
type Client interface {
	ExchangePublicToken(ctx context.Context, publicToken string) (*ItemCredentials, error)
	ListAccounts(ctx context.Context, accessToken string) ([]ExternalAccount, error)
	// ListTransactions returns every transaction in window, optionally
	// restricted to the given external account ids.
	ListTransactions(ctx context.Context, accessToken string, window DateRange, accountIDs []string) ([]ExternalTransaction, error)
	CreateLinkToken(ctx context.Context, clientUserID string) (*LinkToken, error)
}
