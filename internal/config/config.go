package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DateLayout is the calendar-date layout used by the sync window and the aggregator.
const DateLayout = "2006-01-02"

// Config holds application configuration
type Config struct {
	Env  string
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	CORSOrigin string

	// Auth0
	Auth0Domain     string
	Auth0Audience   string
	Auth0RolesClaim string
	AdminRole       string

	// Plaid
	PlaidClientID     string
	PlaidSecret       string
	PlaidEnv          string
	PlaidClientName   string
	PlaidCountryCodes []string
	// PlaidTokenKey seals access tokens at rest. Empty means tokens are stored as-is.
	PlaidTokenKey []byte

	// Sync window. Every sync re-fetches this fixed range.
	SyncWindowStart time.Time
	SyncWindowEnd   time.Time

	CategoryRulesFile string

	OTLPEndpoint string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "freedash"),
		DBPassword: getEnv("DB_PASSWORD", "freedash"),
		DBName:     getEnv("DB_NAME", "freedash"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		Auth0Domain:     getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:   getEnv("AUTH0_AUDIENCE", ""),
		Auth0RolesClaim: getEnv("AUTH0_ROLES_CLAIM", "https://pupfinance.com/roles"),
		AdminRole:       getEnv("ADMIN_ROLE", "admin"),

		PlaidClientID:     getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:       getEnv("PLAID_SECRET", ""),
		PlaidEnv:          getEnv("PLAID_ENV", "sandbox"),
		PlaidClientName:   getEnv("PLAID_CLIENT_NAME", "FreeDash"),
		PlaidCountryCodes: splitList(getEnv("PLAID_COUNTRY_CODES", "US")),

		CategoryRulesFile: getEnv("CATEGORY_RULES_FILE", ""),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	start, end, err := parseWindow(getEnv("SYNC_WINDOW_START", "2024-01-01"), getEnv("SYNC_WINDOW_END", "2024-12-31"))
	if err != nil {
		return nil, err
	}
	cfg.SyncWindowStart, cfg.SyncWindowEnd = start, end

	if raw := getEnv("PLAID_TOKEN_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("PLAID_TOKEN_KEY must be hex encoded: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("PLAID_TOKEN_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.PlaidTokenKey = key
	}

	return cfg, nil
}

// Auth0Issuer returns the issuer URL Auth0 stamps into access tokens.
func (c *Config) Auth0Issuer() string {
	return "https://" + strings.TrimSuffix(c.Auth0Domain, "/") + "/"
}

// Auth0JWKSURL returns the tenant's JSON Web Key Set endpoint.
func (c *Config) Auth0JWKSURL() string {
	return c.Auth0Issuer() + ".well-known/jwks.json"
}

func parseWindow(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid SYNC_WINDOW_START %q: %w", startStr, err)
	}
	end, err := time.Parse(DateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid SYNC_WINDOW_END %q: %w", endStr, err)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("sync window start %s is after end %s", startStr, endStr)
	}
	return start, end, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
