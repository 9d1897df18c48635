package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"freedash/internal/aggregator"
	"freedash/internal/auth"
	"freedash/internal/config"
	"freedash/internal/handlers"
	"freedash/internal/logger"
	"freedash/internal/secrets"
	"freedash/internal/server"
	"freedash/internal/services"
	"freedash/internal/testutil"
	"freedash/internal/validator"
)

const adminRole = "admin"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB         *gorm.DB
	Router     *gin.Engine
	Aggregator *testutil.FakeAggregator
	tokens     map[string]*auth.Identity
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// tokenVerifier accepts only the bearer tokens registered on the app.
type tokenVerifier struct {
	app *testApp
}

func (v tokenVerifier) Verify(_ context.Context, raw string) (*auth.Identity, error) {
	id, ok := v.app.tokens[raw]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return id, nil
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(255 - i)
	}
	sealer, err := secrets.NewSealer(key)
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}

	app := &testApp{
		DB:         db,
		Aggregator: sandboxAggregator(),
		tokens:     map[string]*auth.Identity{},
	}

	window := aggregator.DateRange{Start: mustDate(t, "2024-01-01"), End: mustDate(t, "2024-12-31")}

	// Services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	syncService := services.NewSyncService(db, app.Aggregator, services.NewReconcileService(nil), sealer, window)

	app.Router = server.NewRouter(server.Handlers{
		User:        handlers.NewUserHandler(userService, auditService, adminRole),
		Plaid:       handlers.NewPlaidHandler(userService, syncService, auditService),
		Account:     handlers.NewAccountHandler(userService, services.NewAccountService(db)),
		Transaction: handlers.NewTransactionHandler(userService, services.NewTransactionService(db), services.NewExportService(db)),
	}, server.Options{
		Verifier:   tokenVerifier{app: app},
		AdminRole:  adminRole,
		CORSOrigin: "http://localhost:3000",
	})

	return app
}

// sandboxAggregator links "public-sandbox-1" to an item with two accounts
// and five transactions, two of which belong to an account that is never listed.
func sandboxAggregator() *testutil.FakeAggregator {
	fake := testutil.NewFakeAggregator()
	fake.Link("public-sandbox-1", "access-sandbox-1", "item-sandbox-1")
	fake.Accounts["access-sandbox-1"] = []aggregator.ExternalAccount{
		{ExternalID: "acc-1", Name: "Plaid Checking", Type: "checking", CurrentBalance: decimal.RequireFromString("110.00")},
		{ExternalID: "acc-2", Name: "Plaid Credit Card", Type: "credit card", CurrentBalance: decimal.RequireFromString("410.00")},
	}
	fake.Transactions["access-sandbox-1"] = []aggregator.ExternalTransaction{
		{ExternalID: "txn-1", AccountExternalID: "acc-1", Amount: decimal.RequireFromString("6.33"), Currency: "USD", Date: "2024-03-10", Categories: []string{"Travel", "Taxi"}, Status: aggregator.StatusPosted},
		{ExternalID: "txn-2", AccountExternalID: "acc-1", Amount: decimal.RequireFromString("-500.00"), Currency: "USD", Date: "2024-03-15", Categories: []string{"Transfer", "Payroll"}, Status: aggregator.StatusPosted},
		{ExternalID: "txn-3", AccountExternalID: "acc-2", Amount: decimal.RequireFromString("89.40"), Currency: "USD", Date: "2024-04-01", Categories: []string{"Food and Drink"}, Status: aggregator.StatusPending},
		{ExternalID: "txn-4", AccountExternalID: "acc-999", Amount: decimal.RequireFromString("12.00"), Currency: "USD", Date: "2024-04-02", Status: aggregator.StatusPosted},
		{ExternalID: "txn-5", AccountExternalID: "acc-999", Amount: decimal.RequireFromString("4.00"), Currency: "USD", Date: "2024-04-03", Status: aggregator.StatusPosted},
	}
	return fake
}

// login registers a bearer token for a subject with the given permissions and roles.
func (app *testApp) login(subject, email string, permissions, roles []string) string {
	token := "token-" + subject
	app.tokens[token] = &auth.Identity{
		Subject:     subject,
		Email:       email,
		Permissions: permissions,
		Roles:       roles,
	}
	return token
}

// fullAccess is the permission set the SPA requests.
var fullAccess = []string{server.PermWriteAccounts, server.PermReadTransactions}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// syncUser performs first contact and returns the new user's id.
func (app *testApp) syncUser(t *testing.T, token string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/sync", "", token)
	expectStatus(t, rec, http.StatusCreated)
	return parseJSON(t, rec)["user"].(map[string]interface{})["id"].(string)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(config.DateLayout, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}
