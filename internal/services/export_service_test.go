package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"freedash/internal/testutil"
)

func TestTransactionsXLSX(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExportService(db)

	user := testutil.CreateTestUser(t, db)
	item := testutil.CreateTestPlaidItem(t, db, user.ID, "access-1")
	account := testutil.CreateTestAccount(t, db, user.ID, item.ID, "acc-1")
	testutil.CreateTestTransaction(t, db, account, "txn-1", testDate("2024-02-01"), "12.34")
	testutil.CreateTestTransaction(t, db, account, "txn-2", testDate("2024-03-01"), "56.78")

	var buf bytes.Buffer
	testutil.AssertNoError(t, svc.TransactionsXLSX(context.Background(), user.ID, &buf))

	f, err := excelize.OpenReader(&buf)
	testutil.AssertNoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(transactionsSheet)
	testutil.AssertNoError(t, err)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][7] != "Account" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "2024-03-01" || rows[2][0] != "2024-02-01" {
		t.Errorf("expected newest first, got %s then %s", rows[1][0], rows[2][0])
	}
	if rows[1][7] != account.Name {
		t.Errorf("expected account name %q, got %q", account.Name, rows[1][7])
	}
}
