package services

import (
	"context"

	"gorm.io/gorm"

	apperrors "freedash/internal/errors"
	"freedash/internal/models"
)

// transactionService reads transactions created by reconciliation.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

func (s *transactionService) GetUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return listUserTransactions(s.db.WithContext(ctx), userID)
}

// listUserTransactions returns the user's history newest first. Ties on date
// are broken by id, which is time-ordered.
func listUserTransactions(db *gorm.DB, userID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := db.Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return transactions, nil
}
