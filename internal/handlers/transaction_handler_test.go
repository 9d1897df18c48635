package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"freedash/internal/auth"
	"freedash/internal/middleware"
	"freedash/internal/models"
	"freedash/internal/services"
)

// --- mock transaction and export services ---

type mockTransactionService struct {
	getUserTransactionsFn func(userID string) ([]models.Transaction, error)
}

func (m *mockTransactionService) GetUserTransactions(_ context.Context, userID string) ([]models.Transaction, error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID)
	}
	return []models.Transaction{}, nil
}

type mockExportService struct {
	err error
}

func (m *mockExportService) TransactionsXLSX(_ context.Context, _ string, w io.Writer) error {
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, "PK-workbook")
	return err
}

var (
	_ services.TransactionServicer = (*mockTransactionService)(nil)
	_ services.ExportServicer      = (*mockExportService)(nil)
)

func setupTransactionRouter(handler *TransactionHandler, id *auth.Identity) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	authed := r.Group("", injectIdentity(id))
	authed.GET("/transactions", handler.GetUserTransactions)
	authed.GET("/transactions/export", handler.ExportTransactions)
	return r
}

func TestTransactionHandler_GetUserTransactions(t *testing.T) {
	txnSvc := &mockTransactionService{
		getUserTransactionsFn: func(userID string) ([]models.Transaction, error) {
			return []models.Transaction{{UserID: userID, PlaidTransactionID: "txn-1"}}, nil
		},
	}
	r := setupTransactionRouter(NewTransactionHandler(&mockUserService{}, txnSvc, &mockExportService{}), testIdentity())

	rec := doRequest(r, "GET", "/transactions", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if txns := parseJSON(t, rec)["transactions"].([]interface{}); len(txns) != 1 {
		t.Errorf("expected 1 transaction, got %d", len(txns))
	}
}

func TestTransactionHandler_ExportTransactions(t *testing.T) {
	r := setupTransactionRouter(NewTransactionHandler(&mockUserService{}, &mockTransactionService{}, &mockExportService{}), testIdentity())

	rec := doRequest(r, "GET", "/transactions/export", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=\"transactions-") {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if rec.Body.String() != "PK-workbook" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}
