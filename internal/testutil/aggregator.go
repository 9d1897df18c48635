package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"freedash/internal/aggregator"
	apperrors "freedash/internal/errors"
)

// FakeAggregator is an in-memory aggregator.Client serving canned data.
type FakeAggregator struct {
	mu sync.Mutex

	// Items maps public tokens to the credentials an exchange returns.
	Items        map[string]aggregator.ItemCredentials
	Accounts     map[string][]aggregator.ExternalAccount
	Transactions map[string][]aggregator.ExternalTransaction

	ExchangeErr     error
	AccountsErr     error
	TransactionsErr error
	LinkTokenErr    error

	ExchangeCalls     int
	TransactionsCalls int
	Windows           []aggregator.DateRange
}

var _ aggregator.Client = (*FakeAggregator)(nil)

// NewFakeAggregator returns an empty fake.
func NewFakeAggregator() *FakeAggregator {
	return &FakeAggregator{
		Items:        map[string]aggregator.ItemCredentials{},
		Accounts:     map[string][]aggregator.ExternalAccount{},
		Transactions: map[string][]aggregator.ExternalTransaction{},
	}
}

// Link registers a public token that exchanges into accessToken/itemID.
func (f *FakeAggregator) Link(publicToken, accessToken, itemID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Items[publicToken] = aggregator.ItemCredentials{AccessToken: accessToken, ItemID: itemID}
}

func (f *FakeAggregator) ExchangePublicToken(_ context.Context, publicToken string) (*aggregator.ItemCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExchangeCalls++
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	creds, ok := f.Items[publicToken]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrExternalService, fmt.Errorf("unknown public token %q", publicToken))
	}
	return &creds, nil
}

func (f *FakeAggregator) ListAccounts(_ context.Context, accessToken string) ([]aggregator.ExternalAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AccountsErr != nil {
		return nil, f.AccountsErr
	}
	return slices.Clone(f.Accounts[accessToken]), nil
}

func (f *FakeAggregator) ListTransactions(_ context.Context, accessToken string, window aggregator.DateRange, accountIDs []string) ([]aggregator.ExternalTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TransactionsCalls++
	f.Windows = append(f.Windows, window)
	if f.TransactionsErr != nil {
		return nil, f.TransactionsErr
	}

	var out []aggregator.ExternalTransaction
	for _, t := range f.Transactions[accessToken] {
		if len(accountIDs) == 0 || slices.Contains(accountIDs, t.AccountExternalID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *FakeAggregator) CreateLinkToken(_ context.Context, clientUserID string) (*aggregator.LinkToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LinkTokenErr != nil {
		return nil, f.LinkTokenErr
	}
	return &aggregator.LinkToken{
		Token:      "link-sandbox-" + clientUserID,
		Expiration: time.Now().Add(4 * time.Hour).UTC(),
	}, nil
}
