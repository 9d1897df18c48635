package services

import (
	"context"
	"io"

	"gorm.io/gorm"

	"freedash/internal/aggregator"
	"freedash/internal/auth"
	"freedash/internal/models"
	"freedash/internal/pagination"
)

// SyncProfile carries the optional profile fields sent on first contact.
type SyncProfile struct {
	Email           string
	Name            string
	Timezone        string
	DefaultCurrency string
}

// PreferencesUpdate holds the preference fields a user may change. Nil means unchanged.
type PreferencesUpdate struct {
	WeeklyReport  *bool
	TaxRate       *float64
	ClearTaxRate  bool
	BusinessHours []int64
}

// UserUpdate holds the profile fields a user may change. Nil means unchanged.
type UserUpdate struct {
	Name             *string
	Timezone         *string
	DefaultCurrency  *string
	OnboardingStatus *models.OnboardingStatus
	Preferences      *PreferencesUpdate
}

// UserServicer resolves verified identities to local users and manages them.
type UserServicer interface {
	ResolveUser(ctx context.Context, id *auth.Identity, profile SyncProfile) (*models.User, bool, error)
	GetUserBySubject(ctx context.Context, subject string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, page pagination.PageRequest) (*pagination.Page[models.User], error)
}

// ReconcileServicer merges aggregator records into local storage. Both
// methods run on the caller's transaction handle and only return an error
// for storage failures; per-record problems are recorded on result.
type ReconcileServicer interface {
	ReconcileAccounts(tx *gorm.DB, userID string, item *models.PlaidItem, externals []aggregator.ExternalAccount, result *SyncResult) ([]models.Account, error)
	ReconcileTransactions(tx *gorm.DB, userID string, externals []aggregator.ExternalTransaction, known map[string]models.Account, result *SyncResult) ([]models.Transaction, error)
}

// SyncServicer sequences aggregator calls and reconciliation.
type SyncServicer interface {
	ExchangeAndSync(ctx context.Context, user *models.User, publicToken string) (*ExchangeResult, error)
	RefreshTransactions(ctx context.Context, user *models.User) (*SyncResult, []models.Transaction, error)
	CreateLinkToken(ctx context.Context, user *models.User) (*aggregator.LinkToken, error)
}

// AccountServicer reads reconciled accounts.
type AccountServicer interface {
	GetUserAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetAccountByID(ctx context.Context, userID, accountID string) (*models.Account, error)
}

// TransactionServicer reads reconciled transactions.
type TransactionServicer interface {
	// GetUserTransactions returns the user's stored history, newest first.
	GetUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// AuditServicer records sensitive operations.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}

// ExportServicer renders stored data as downloadable files.
type ExportServicer interface {
	TransactionsXLSX(ctx context.Context, userID string, w io.Writer) error
}
