package services

import (
	apperrors "freedash/internal/errors"
	"freedash/internal/models"
)

// SyncState is how far an orchestrator call progressed.
type SyncState string

const (
	StateTokenExchangePending SyncState = "token_exchange_pending"
	StateItemLinked           SyncState = "item_linked"
	StateAccountsSynced       SyncState = "accounts_synced"
	StateTransactionsSynced   SyncState = "transactions_synced"
)

// Record kinds used in RecordFailure.
const (
	KindAccount     = "account"
	KindTransaction = "transaction"
)

// RecordFailure describes one external record that was not applied.
type RecordFailure struct {
	Kind       string `json:"kind"`
	ExternalID string `json:"external_id"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

// SyncResult summarizes one orchestrator call. It never carries credentials.
type SyncResult struct {
	State               SyncState       `json:"state"`
	AccountsCreated     int             `json:"accounts_created"`
	AccountsUpdated     int             `json:"accounts_updated"`
	TransactionsCreated int             `json:"transactions_created"`
	TransactionsUpdated int             `json:"transactions_updated"`
	Skipped             int             `json:"skipped"`
	Failures            []RecordFailure `json:"failures"`
}

// NewSyncResult returns an empty result in the initial state.
func NewSyncResult() *SyncResult {
	return &SyncResult{State: StateTokenExchangePending, Failures: []RecordFailure{}}
}

func (r *SyncResult) fail(kind, externalID string, err *apperrors.AppError) {
	r.Failures = append(r.Failures, RecordFailure{
		Kind:       kind,
		ExternalID: externalID,
		Code:       err.Code,
		Reason:     err.Message,
	})
}

// ExchangeResult is returned by ExchangeAndSync.
type ExchangeResult struct {
	Item         *models.PlaidItem    `json:"item"`
	Accounts     []models.Account     `json:"accounts"`
	Transactions []models.Transaction `json:"transactions"`
	Summary      *SyncResult          `json:"summary"`
}
