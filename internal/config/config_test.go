package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SYNC_WINDOW_START", "")
	t.Setenv("SYNC_WINDOW_END", "")
	t.Setenv("PLAID_TOKEN_KEY", "")
	t.Setenv("PLAID_COUNTRY_CODES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port == "" {
		t.Error("expected a default port")
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !cfg.SyncWindowStart.Equal(want) {
		t.Errorf("expected window start %v, got %v", want, cfg.SyncWindowStart)
	}
	if len(cfg.PlaidCountryCodes) != 1 || cfg.PlaidCountryCodes[0] != "US" {
		t.Errorf("expected [US], got %v", cfg.PlaidCountryCodes)
	}
	if cfg.PlaidTokenKey != nil {
		t.Errorf("expected no token key by default")
	}
}

func TestLoad_SyncWindow(t *testing.T) {
	t.Run("custom window", func(t *testing.T) {
		t.Setenv("SYNC_WINDOW_START", "2023-06-01")
		t.Setenv("SYNC_WINDOW_END", "2023-06-30")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SyncWindowEnd.Format(DateLayout) != "2023-06-30" {
			t.Errorf("expected end 2023-06-30, got %s", cfg.SyncWindowEnd.Format(DateLayout))
		}
	})

	t.Run("start after end", func(t *testing.T) {
		t.Setenv("SYNC_WINDOW_START", "2024-02-01")
		t.Setenv("SYNC_WINDOW_END", "2024-01-01")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for inverted window")
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		t.Setenv("SYNC_WINDOW_START", "01/02/2024")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for malformed date")
		}
	})
}

func TestLoad_TokenKey(t *testing.T) {
	t.Run("valid hex key", func(t *testing.T) {
		t.Setenv("PLAID_TOKEN_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.PlaidTokenKey) != 32 {
			t.Errorf("expected 32-byte key, got %d", len(cfg.PlaidTokenKey))
		}
	})

	t.Run("short key", func(t *testing.T) {
		t.Setenv("PLAID_TOKEN_KEY", "abcd")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for short key")
		}
	})

	t.Run("not hex", func(t *testing.T) {
		t.Setenv("PLAID_TOKEN_KEY", "zz")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for non-hex key")
		}
	})
}

func TestAuth0URLs(t *testing.T) {
	cfg := &Config{Auth0Domain: "tenant.us.auth0.com"}

	if got := cfg.Auth0Issuer(); got != "https://tenant.us.auth0.com/" {
		t.Errorf("issuer = %q", got)
	}
	if got := cfg.Auth0JWKSURL(); got != "https://tenant.us.auth0.com/.well-known/jwks.json" {
		t.Errorf("jwks url = %q", got)
	}
}
