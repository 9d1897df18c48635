package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"freedash/internal/aggregator"
	"freedash/internal/config"
	apperrors "freedash/internal/errors"
	"freedash/internal/logger"
	"freedash/internal/models"
)

// reconcileService upserts aggregator records keyed by their external ids.
type reconcileService struct {
	rules *TypeRules
	now   func() time.Time
}

// NewReconcileService creates a new ReconcileServicer. A nil rules table
// selects DefaultTypeRules.
func NewReconcileService(rules *TypeRules) ReconcileServicer {
	if rules == nil {
		rules = DefaultTypeRules()
	}
	return &reconcileService{rules: rules, now: time.Now}
}

// ReconcileAccounts creates unseen accounts and refreshes balance and
// last-synced time on known ones. Name, official name and type never change
// after creation.
func (s *reconcileService) ReconcileAccounts(tx *gorm.DB, userID string, item *models.PlaidItem, externals []aggregator.ExternalAccount, result *SyncResult) ([]models.Account, error) {
	now := s.now().UTC()
	accounts := make([]models.Account, 0, len(externals))

	for _, ext := range externals {
		var existing models.Account
		err := tx.Where("plaid_account_id = ?", ext.ExternalID).First(&existing).Error

		switch {
		case err == nil:
			if existing.UserID != userID {
				s.reject(result, KindAccount, ext.ExternalID,
					apperrors.WithMessage(apperrors.ErrConflict, "account is linked to another user"))
				continue
			}
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"balance":     ext.CurrentBalance,
				"last_synced": now,
			}).Error; err != nil {
				return nil, storageError(err)
			}
			existing.Balance = ext.CurrentBalance
			existing.LastSynced = now
			result.AccountsUpdated++
			accounts = append(accounts, existing)

		case errors.Is(err, gorm.ErrRecordNotFound):
			accountType, ok := MapAccountType(ext.Type)
			if !ok {
				s.reject(result, KindAccount, ext.ExternalID,
					apperrors.WithMessage(apperrors.ErrMapping, fmt.Sprintf("unsupported account type %q", ext.Type)))
				continue
			}
			account := models.Account{
				UserID:         userID,
				PlaidItemID:    item.ID,
				PlaidAccountID: ext.ExternalID,
				Name:           ext.Name,
				OfficialName:   ext.OfficialName,
				Type:           accountType,
				Balance:        ext.CurrentBalance,
				LastSynced:     now,
			}
			if err := tx.Create(&account).Error; err != nil {
				return nil, storageError(err)
			}
			result.AccountsCreated++
			accounts = append(accounts, account)

		default:
			return nil, storageError(err)
		}
	}

	return accounts, nil
}

// ReconcileTransactions creates unseen transactions and refreshes amount,
// status and date on known ones. Transactions whose account is not in known
// are skipped.
func (s *reconcileService) ReconcileTransactions(tx *gorm.DB, userID string, externals []aggregator.ExternalTransaction, known map[string]models.Account, result *SyncResult) ([]models.Transaction, error) {
	transactions := make([]models.Transaction, 0, len(externals))

	for _, ext := range externals {
		account, ok := known[ext.AccountExternalID]
		if !ok {
			result.Skipped++
			logger.Get().Warnw("skipping transaction for unknown account",
				"user_id", userID,
				"plaid_transaction_id", ext.ExternalID,
				"plaid_account_id", ext.AccountExternalID,
			)
			continue
		}

		status, ok := MapTransactionStatus(ext.Status)
		if !ok {
			s.reject(result, KindTransaction, ext.ExternalID,
				apperrors.WithMessage(apperrors.ErrMapping, fmt.Sprintf("unsupported status %q", ext.Status)))
			continue
		}
		date, err := time.Parse(config.DateLayout, ext.Date)
		if err != nil {
			s.reject(result, KindTransaction, ext.ExternalID,
				apperrors.WithMessage(apperrors.ErrMapping, fmt.Sprintf("invalid date %q", ext.Date)))
			continue
		}

		var existing models.Transaction
		err = tx.Where("plaid_transaction_id = ?", ext.ExternalID).First(&existing).Error

		switch {
		case err == nil:
			if existing.UserID != userID {
				s.reject(result, KindTransaction, ext.ExternalID,
					apperrors.WithMessage(apperrors.ErrConflict, "transaction belongs to another user"))
				continue
			}
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"amount": ext.Amount,
				"status": status,
				"date":   date,
			}).Error; err != nil {
				return nil, storageError(err)
			}
			existing.Amount = ext.Amount
			existing.Status = status
			existing.Date = date
			result.TransactionsUpdated++
			transactions = append(transactions, existing)

		case errors.Is(err, gorm.ErrRecordNotFound):
			currency := ext.Currency
			if currency == "" {
				currency = models.DefaultCurrency
			}
			txn := models.Transaction{
				UserID:             userID,
				AccountID:          account.ID,
				PlaidTransactionID: ext.ExternalID,
				Amount:             ext.Amount,
				Currency:           currency,
				Date:               date,
				Merchant:           ext.MerchantName,
				PlaidCategory:      ext.Categories,
				Status:             status,
				Type:               s.rules.Derive(ext.Categories),
			}
			if err := tx.Create(&txn).Error; err != nil {
				return nil, storageError(err)
			}
			result.TransactionsCreated++
			transactions = append(transactions, txn)

		default:
			return nil, storageError(err)
		}
	}

	return transactions, nil
}

func (s *reconcileService) reject(result *SyncResult, kind, externalID string, err *apperrors.AppError) {
	result.fail(kind, externalID, err)
	logger.Get().Warnw("rejected external record",
		"kind", kind,
		"external_id", externalID,
		"code", err.Code,
		"reason", err.Message,
	)
}

// MapAccountType translates the aggregator's account subtype.
func MapAccountType(external string) (models.AccountType, bool) {
	switch external {
	case "checking":
		return models.AccountTypeChecking, true
	case "savings":
		return models.AccountTypeSavings, true
	case "credit card":
		return models.AccountTypeCredit, true
	}
	return "", false
}

// MapTransactionStatus translates the aggregator's settlement state.
func MapTransactionStatus(external string) (models.TransactionStatus, bool) {
	switch external {
	case aggregator.StatusPending:
		return models.TransactionStatusPending, true
	case aggregator.StatusPosted:
		return models.TransactionStatusPosted, true
	}
	return "", false
}

// KnownAccounts indexes accounts by their external id.
func KnownAccounts(accounts []models.Account) map[string]models.Account {
	known := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		known[a.PlaidAccountID] = a
	}
	return known
}

// storageError maps a GORM error so unique-constraint races surface as conflicts.
func storageError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Wrap(apperrors.ErrConflict, err)
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}
