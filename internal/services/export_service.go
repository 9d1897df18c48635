package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"freedash/internal/config"
	apperrors "freedash/internal/errors"
	"freedash/internal/models"
)

const transactionsSheet = "Transactions"

var transactionColumns = []interface{}{"Date", "Merchant", "Amount", "Currency", "Type", "Status", "Categories", "Account"}

// exportService renders stored transactions as spreadsheets.
type exportService struct {
	db *gorm.DB
}

// NewExportService creates a new ExportServicer.
func NewExportService(db *gorm.DB) ExportServicer {
	return &exportService{db: db}
}

// TransactionsXLSX writes the user's stored history, newest first, as an
// xlsx workbook with one row per transaction.
func (s *exportService) TransactionsXLSX(ctx context.Context, userID string, w io.Writer) error {
	db := s.db.WithContext(ctx)

	transactions, err := listUserTransactions(db, userID)
	if err != nil {
		return err
	}

	var accounts []models.Account
	if err := db.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	accountNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := f.SetSheetRow(transactionsSheet, "A1", &transactionColumns); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i, t := range transactions {
		merchant := ""
		if t.Merchant != nil {
			merchant = *t.Merchant
		}
		amount, _ := t.Amount.Float64()
		row := []interface{}{
			t.Date.Format(config.DateLayout),
			merchant,
			amount,
			t.Currency,
			string(t.Type),
			string(t.Status),
			strings.Join(t.PlaidCategory, " > "),
			accountNames[t.AccountID],
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := f.SetSheetRow(transactionsSheet, cell, &row); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if err := f.Write(w); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("write workbook: %w", err))
	}
	return nil
}
