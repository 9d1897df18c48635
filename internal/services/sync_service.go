package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"freedash/internal/aggregator"
	apperrors "freedash/internal/errors"
	"freedash/internal/logger"
	"freedash/internal/models"
	"freedash/internal/secrets"
)

var (
	syncTracer     = otel.Tracer("freedash/sync")
	syncMeter      = otel.Meter("freedash/sync")
	syncRuns, _    = syncMeter.Int64Counter("freedash.sync.runs", metric.WithDescription("Sync orchestrator calls by operation and outcome"))
	syncRecords, _ = syncMeter.Int64Counter("freedash.sync.records", metric.WithDescription("External records reconciled by kind and outcome"))
)

// syncService drives the exchange-and-sync and refresh flows. Every local
// write of one call happens inside a single database transaction.
type syncService struct {
	db         *gorm.DB
	client     aggregator.Client
	reconciler ReconcileServicer
	sealer     *secrets.Sealer
	window     aggregator.DateRange
}

// NewSyncService creates a new SyncServicer. window is the fixed historical
// range fetched on every call.
func NewSyncService(db *gorm.DB, client aggregator.Client, reconciler ReconcileServicer, sealer *secrets.Sealer, window aggregator.DateRange) SyncServicer {
	return &syncService{
		db:         db,
		client:     client,
		reconciler: reconciler,
		sealer:     sealer,
		window:     window,
	}
}

// ExchangeAndSync exchanges a public token, links the item, and imports its
// accounts and their transactions. Nothing is written if any step fails.
// An item the user already linked is reused as-is.
func (s *syncService) ExchangeAndSync(ctx context.Context, user *models.User, publicToken string) (result *ExchangeResult, err error) {
	ctx, span := syncTracer.Start(ctx, "sync.exchange_and_sync", trace.WithAttributes(attribute.String("user.id", user.ID)))
	summary := NewSyncResult()
	defer func() { s.finish(ctx, span, "exchange", summary, err) }()

	if publicToken == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "public_token is required")
	}

	creds, err := s.client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, externalError(err)
	}
	sealed, err := s.sealer.Seal(creds.AccessToken)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("seal access token: %w", err))
	}

	item := &models.PlaidItem{UserID: user.ID, ItemID: creds.ItemID, AccessToken: sealed}
	var accounts []models.Account
	var transactions []models.Transaction

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PlaidItem
		switch lookupErr := tx.Where("item_id = ?", creds.ItemID).First(&existing).Error; {
		case lookupErr == nil:
			if existing.UserID != user.ID {
				return apperrors.WithMessage(apperrors.ErrConflict, "bank connection is linked to another user")
			}
			item = &existing
		case errors.Is(lookupErr, gorm.ErrRecordNotFound):
			if err := tx.Create(item).Error; err != nil {
				return storageError(err)
			}
		default:
			return storageError(lookupErr)
		}
		summary.State = StateItemLinked
		span.AddEvent("item linked", trace.WithAttributes(attribute.String("plaid.item_id", item.ItemID)))

		externals, err := s.client.ListAccounts(ctx, creds.AccessToken)
		if err != nil {
			return externalError(err)
		}
		accounts, err = s.reconciler.ReconcileAccounts(tx, user.ID, item, externals, summary)
		if err != nil {
			return err
		}
		summary.State = StateAccountsSynced

		known := KnownAccounts(accounts)
		transactions = []models.Transaction{}
		for _, account := range accounts {
			fetched, err := s.client.ListTransactions(ctx, creds.AccessToken, s.window, []string{account.PlaidAccountID})
			if err != nil {
				return externalError(err)
			}
			reconciled, err := s.reconciler.ReconcileTransactions(tx, user.ID, fetched, known, summary)
			if err != nil {
				return err
			}
			transactions = append(transactions, reconciled...)
		}
		summary.State = StateTransactionsSynced
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("exchange and sync complete",
		"user_id", user.ID,
		"plaid_item_id", item.ItemID,
		"accounts_created", summary.AccountsCreated,
		"accounts_updated", summary.AccountsUpdated,
		"transactions_created", summary.TransactionsCreated,
		"transactions_updated", summary.TransactionsUpdated,
		"skipped", summary.Skipped,
		"failures", len(summary.Failures),
	)

	return &ExchangeResult{
		Item:         item,
		Accounts:     accounts,
		Transactions: transactions,
		Summary:      summary,
	}, nil
}

// RefreshTransactions re-imports the fixed window for every item the user
// linked and returns the user's full history, newest first.
func (s *syncService) RefreshTransactions(ctx context.Context, user *models.User) (*SyncResult, []models.Transaction, error) {
	ctx, span := syncTracer.Start(ctx, "sync.refresh_transactions", trace.WithAttributes(attribute.String("user.id", user.ID)))
	summary := NewSyncResult()
	var history []models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.PlaidItem
		if err := tx.Where("user_id = ?", user.ID).Order("created_at ASC").Find(&items).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(items) == 0 {
			return apperrors.ErrPlaidItemNotFound
		}
		summary.State = StateItemLinked

		var accounts []models.Account
		if err := tx.Where("user_id = ?", user.ID).Find(&accounts).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		known := KnownAccounts(accounts)
		summary.State = StateAccountsSynced

		for i := range items {
			accessToken, err := s.sealer.Open(items[i].AccessToken)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("open access token for item %s: %w", items[i].ItemID, err))
			}
			fetched, err := s.client.ListTransactions(ctx, accessToken, s.window, nil)
			if err != nil {
				return externalError(err)
			}
			if _, err := s.reconciler.ReconcileTransactions(tx, user.ID, fetched, known, summary); err != nil {
				return err
			}
		}
		summary.State = StateTransactionsSynced

		var err error
		history, err = listUserTransactions(tx, user.ID)
		return err
	})
	s.finish(ctx, span, "refresh", summary, err)
	if err != nil {
		return nil, nil, err
	}
	return summary, history, nil
}

// CreateLinkToken starts the client-side linking flow for user.
func (s *syncService) CreateLinkToken(ctx context.Context, user *models.User) (*aggregator.LinkToken, error) {
	ctx, span := syncTracer.Start(ctx, "sync.create_link_token")
	defer span.End()

	token, err := s.client.CreateLinkToken(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, externalError(err)
	}
	return token, nil
}

func (s *syncService) finish(ctx context.Context, span trace.Span, op string, summary *SyncResult, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if summary == nil {
		summary = NewSyncResult()
	}
	span.SetAttributes(
		attribute.String("sync.state", string(summary.State)),
		attribute.Int("sync.accounts_created", summary.AccountsCreated),
		attribute.Int("sync.transactions_created", summary.TransactionsCreated),
		attribute.Int("sync.failures", len(summary.Failures)),
	)
	span.End()

	syncRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
	if err != nil {
		return
	}
	for _, c := range []struct {
		kind, outcome string
		n             int
	}{
		{KindAccount, "created", summary.AccountsCreated},
		{KindAccount, "updated", summary.AccountsUpdated},
		{KindTransaction, "created", summary.TransactionsCreated},
		{KindTransaction, "updated", summary.TransactionsUpdated},
		{KindTransaction, "skipped", summary.Skipped},
	} {
		if c.n > 0 {
			syncRecords.Add(ctx, int64(c.n), metric.WithAttributes(
				attribute.String("kind", c.kind),
				attribute.String("outcome", c.outcome),
			))
		}
	}
	if n := len(summary.Failures); n > 0 {
		syncRecords.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", "rejected")))
	}
}

// externalError keeps AppErrors from the aggregator and classifies anything
// else as an external service failure.
func externalError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrExternalService, err)
}
