package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/plaid/plaid-go/v29/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "freedash/internal/errors"
)

func newTestPlaid(t *testing.T, handler http.HandlerFunc) *PlaidClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewPlaidClient(PlaidConfig{
		ClientID:     "client-id",
		Secret:       "secret",
		Env:          srv.URL,
		ClientName:   "FreeDash",
		CountryCodes: []string{"us"},
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestPlaidClient_ExchangePublicToken(t *testing.T) {
	c := newTestPlaid(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/public_token/exchange", r.URL.Path)
		assert.Equal(t, "client-id", r.Header.Get("PLAID-CLIENT-ID"))
		assert.Equal(t, "secret", r.Header.Get("PLAID-SECRET"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "public-sandbox-1", body["public_token"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-sandbox-1","item_id":"item-1","request_id":"req-1"}`))
	})

	creds, err := c.ExchangePublicToken(context.Background(), "public-sandbox-1")
	require.NoError(t, err)
	assert.Equal(t, "access-sandbox-1", creds.AccessToken)
	assert.Equal(t, "item-1", creds.ItemID)
}

func TestPlaidClient_ExchangePublicToken_Error(t *testing.T) {
	c := newTestPlaid(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_type":"INVALID_INPUT","error_code":"INVALID_PUBLIC_TOKEN","error_message":"bad token","display_message":null,"request_id":"req-2"}`))
	})

	_, err := c.ExchangePublicToken(context.Background(), "public-bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExternalService))
}

func TestPlaidClient_CreateLinkToken(t *testing.T) {
	c := newTestPlaid(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/link/token/create", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "FreeDash", body["client_name"])
		assert.Equal(t, []interface{}{"US"}, body["country_codes"])
		assert.Equal(t, []interface{}{"transactions"}, body["products"])
		user, _ := body["user"].(map[string]interface{})
		assert.Equal(t, "user-123", user["client_user_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"link_token":"link-sandbox-1","expiration":"2030-01-02T15:04:05Z","request_id":"req-3"}`))
	})

	lt, err := c.CreateLinkToken(context.Background(), "user-123")
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-1", lt.Token)
	assert.True(t, lt.Expiration.Equal(time.Date(2030, 1, 2, 15, 4, 5, 0, time.UTC)))
}

func TestResolveEnvironment(t *testing.T) {
	env, err := resolveEnvironment("sandbox")
	require.NoError(t, err)
	assert.Equal(t, plaid.Sandbox, env)

	env, err = resolveEnvironment("Production")
	require.NoError(t, err)
	assert.Equal(t, plaid.Production, env)

	env, err = resolveEnvironment("http://localhost:9999/")
	require.NoError(t, err)
	assert.Equal(t, plaid.Environment("http://localhost:9999"), env)

	_, err = resolveEnvironment("staging")
	assert.Error(t, err)
}

func plaidTxn(id string, pending bool) plaid.Transaction {
	var t plaid.Transaction
	t.SetTransactionId(id)
	t.SetAccountId("acc-1")
	t.SetAmount(12.5)
	t.SetDate("2024-03-01")
	t.SetPending(pending)
	return t
}

func TestCollectTransactions_Pages(t *testing.T) {
	var offsets []int32
	pages := [][]plaid.Transaction{
		{plaidTxn("t1", false), plaidTxn("t2", false)},
		{plaidTxn("t3", false)},
	}

	all, err := collectTransactions(func(offset int32) ([]plaid.Transaction, int32, error) {
		offsets = append(offsets, offset)
		return pages[len(offsets)-1], 3, nil
	})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, []int32{0, 2}, offsets)
}

func TestCollectTransactions_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	all, err := collectTransactions(func(int32) ([]plaid.Transaction, int32, error) {
		calls++
		return nil, 10, nil
	})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 1, calls)
}

func TestCollectTransactions_Error(t *testing.T) {
	_, err := collectTransactions(func(int32) ([]plaid.Transaction, int32, error) {
		return nil, 0, errors.New("boom")
	})
	assert.Error(t, err)
}

func TestTransactionFromPlaid(t *testing.T) {
	pt := plaidTxn("t1", true)
	pt.SetIsoCurrencyCode("USD")
	pt.SetMerchantName("Coffee Shop")
	pt.SetCategory([]string{"Food and Drink", "Restaurants"})

	got := transactionFromPlaid(pt)
	assert.Equal(t, "t1", got.ExternalID)
	assert.Equal(t, "acc-1", got.AccountExternalID)
	assert.Equal(t, "12.5", got.Amount.String())
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "2024-03-01", got.Date)
	require.NotNil(t, got.MerchantName)
	assert.Equal(t, "Coffee Shop", *got.MerchantName)
	assert.Equal(t, []string{"Food and Drink", "Restaurants"}, got.Categories)
	assert.Equal(t, StatusPending, got.Status)

	posted := transactionFromPlaid(plaidTxn("t2", false))
	assert.Equal(t, StatusPosted, posted.Status)
	assert.Nil(t, posted.MerchantName)
}

func TestAccountFromPlaid(t *testing.T) {
	var balances plaid.AccountBalance
	balances.SetCurrent(1200.75)

	var a plaid.AccountBase
	a.SetAccountId("acc-1")
	a.SetName("Plaid Checking")
	a.SetOfficialName("Plaid Gold Standard 0% Interest Checking")
	a.SetSubtype(plaid.ACCOUNTSUBTYPE_CHECKING)
	a.SetBalances(balances)

	got := accountFromPlaid(a)
	assert.Equal(t, "acc-1", got.ExternalID)
	assert.Equal(t, "Plaid Checking", got.Name)
	require.NotNil(t, got.OfficialName)
	assert.Equal(t, "checking", got.Type)
	assert.Equal(t, "1200.75", got.CurrentBalance.String())
}
