package aggregator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/plaid/plaid-go/v29/plaid"
	"github.com/shopspring/decimal"

	apperrors "freedash/internal/errors"
)

const (
	dateLayout = "2006-01-02"
	// pageSize is the largest page /transactions/get accepts.
	pageSize = 500
)

// PlaidConfig configures PlaidClient.
type PlaidConfig struct {
	ClientID string
	Secret   string
	// Env is "sandbox", "production" or a base URL.
	Env          string
	ClientName   string
	CountryCodes []string
	HTTPClient   *http.Client
}

// PlaidClient implements Client on top of plaid-go.
type PlaidClient struct {
	api          *plaid.PlaidApiService
	clientName   string
	countryCodes []plaid.CountryCode
}

// NewPlaidClient creates a new Plaid-backed aggregator client.
func NewPlaidClient(cfg PlaidConfig) (*PlaidClient, error) {
	env, err := resolveEnvironment(cfg.Env)
	if err != nil {
		return nil, err
	}

	conf := plaid.NewConfiguration()
	conf.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	conf.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	conf.UseEnvironment(env)
	if cfg.HTTPClient != nil {
		conf.HTTPClient = cfg.HTTPClient
	}

	codes := make([]plaid.CountryCode, 0, len(cfg.CountryCodes))
	for _, c := range cfg.CountryCodes {
		codes = append(codes, plaid.CountryCode(strings.ToUpper(c)))
	}
	if len(codes) == 0 {
		codes = append(codes, plaid.COUNTRYCODE_US)
	}

	return &PlaidClient{
		api:          plaid.NewAPIClient(conf).PlaidApi,
		clientName:   cfg.ClientName,
		countryCodes: codes,
	}, nil
}

func resolveEnvironment(env string) (plaid.Environment, error) {
	switch strings.ToLower(env) {
	case "", "sandbox":
		return plaid.Sandbox, nil
	case "production":
		return plaid.Production, nil
	}
	if strings.HasPrefix(env, "http://") || strings.HasPrefix(env, "https://") {
		return plaid.Environment(strings.TrimSuffix(env, "/")), nil
	}
	return "", fmt.Errorf("unknown Plaid environment %q", env)
}

// ExchangePublicToken trades a Link public token for a durable access token.
func (p *PlaidClient) ExchangePublicToken(ctx context.Context, publicToken string) (*ItemCredentials, error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := p.api.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return nil, wrapPlaidError("item/public_token/exchange", err)
	}
	return &ItemCredentials{AccessToken: resp.GetAccessToken(), ItemID: resp.GetItemId()}, nil
}

// ListAccounts returns the accounts attached to an item.
func (p *PlaidClient) ListAccounts(ctx context.Context, accessToken string) ([]ExternalAccount, error) {
	req := plaid.NewAccountsGetRequest(accessToken)
	resp, _, err := p.api.AccountsGet(ctx).AccountsGetRequest(*req).Execute()
	if err != nil {
		return nil, wrapPlaidError("accounts/get", err)
	}

	accounts := make([]ExternalAccount, 0, len(resp.GetAccounts()))
	for _, a := range resp.GetAccounts() {
		accounts = append(accounts, accountFromPlaid(a))
	}
	return accounts, nil
}

// ListTransactions pages through /transactions/get until the reported total is reached.
func (p *PlaidClient) ListTransactions(ctx context.Context, accessToken string, window DateRange, accountIDs []string) ([]ExternalTransaction, error) {
	fetch := func(offset int32) ([]plaid.Transaction, int32, error) {
		opts := plaid.NewTransactionsGetRequestOptions()
		opts.SetCount(pageSize)
		opts.SetOffset(offset)
		if len(accountIDs) > 0 {
			opts.SetAccountIds(accountIDs)
		}

		req := plaid.NewTransactionsGetRequest(accessToken, window.Start.Format(dateLayout), window.End.Format(dateLayout))
		req.SetOptions(*opts)

		resp, _, err := p.api.TransactionsGet(ctx).TransactionsGetRequest(*req).Execute()
		if err != nil {
			return nil, 0, wrapPlaidError("transactions/get", err)
		}
		return resp.GetTransactions(), resp.GetTotalTransactions(), nil
	}

	raw, err := collectTransactions(fetch)
	if err != nil {
		return nil, err
	}

	out := make([]ExternalTransaction, 0, len(raw))
	for _, t := range raw {
		out = append(out, transactionFromPlaid(t))
	}
	return out, nil
}

// CreateLinkToken asks Plaid for a Link token bound to clientUserID.
func (p *PlaidClient) CreateLinkToken(ctx context.Context, clientUserID string) (*LinkToken, error) {
	user := plaid.LinkTokenCreateRequestUser{ClientUserId: clientUserID}
	req := plaid.NewLinkTokenCreateRequest(p.clientName, "en", p.countryCodes, user)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := p.api.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return nil, wrapPlaidError("link/token/create", err)
	}
	return &LinkToken{Token: resp.GetLinkToken(), Expiration: resp.GetExpiration()}, nil
}

// collectTransactions calls fetch with increasing offsets until total items
// were seen or a page comes back empty.
func collectTransactions(fetch func(offset int32) ([]plaid.Transaction, int32, error)) ([]plaid.Transaction, error) {
	var all []plaid.Transaction
	for {
		page, total, err := fetch(int32(len(all)))
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || int32(len(all)) >= total {
			return all, nil
		}
	}
}

func accountFromPlaid(a plaid.AccountBase) ExternalAccount {
	acc := ExternalAccount{
		ExternalID:     a.GetAccountId(),
		Name:           a.GetName(),
		Type:           string(a.GetSubtype()),
		CurrentBalance: decimal.NewFromFloat(a.Balances.GetCurrent()),
	}
	if name := a.GetOfficialName(); name != "" {
		acc.OfficialName = &name
	}
	return acc
}

func transactionFromPlaid(t plaid.Transaction) ExternalTransaction {
	currency := t.GetIsoCurrencyCode()
	if currency == "" {
		currency = t.GetUnofficialCurrencyCode()
	}

	status := StatusPosted
	if t.GetPending() {
		status = StatusPending
	}

	tx := ExternalTransaction{
		ExternalID:        t.GetTransactionId(),
		AccountExternalID: t.GetAccountId(),
		Amount:            decimal.NewFromFloat(t.GetAmount()),
		Currency:          currency,
		Date:              t.GetDate(),
		Categories:        t.GetCategory(),
		Status:            status,
	}
	if m := t.GetMerchantName(); m != "" {
		tx.MerchantName = &m
	}
	return tx
}

func wrapPlaidError(op string, err error) error {
	if perr, convErr := plaid.ToPlaidError(err); convErr == nil && perr.ErrorCode != "" {
		return apperrors.Wrap(apperrors.ErrExternalService,
			fmt.Errorf("plaid %s: %s: %s", op, perr.ErrorCode, perr.ErrorMessage))
	}
	return apperrors.Wrap(apperrors.ErrExternalService, fmt.Errorf("plaid %s: %w", op, err))
}
