package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"freedash/internal/aggregator"
	"freedash/internal/auth"
	"freedash/internal/config"
	"freedash/internal/database"
	"freedash/internal/handlers"
	"freedash/internal/logger"
	"freedash/internal/secrets"
	"freedash/internal/server"
	"freedash/internal/services"
	"freedash/internal/telemetry"
	"freedash/internal/validator"
)

// @title           FreeDash API
// @version         1.0
// @description     FreeDash links bank accounts through Plaid and keeps a reconciled copy of accounts and transactions for each Auth0 user.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and an Auth0 access token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "freedash-api",
		Environment:  appConfig.Env,
		OTLPEndpoint: appConfig.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Warnf("telemetry shutdown: %v", err)
		}
	}()

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	sealer, err := secrets.NewSealer(appConfig.PlaidTokenKey)
	if err != nil {
		return fmt.Errorf("failed to create token sealer: %w", err)
	}

	typeRules := services.DefaultTypeRules()
	if appConfig.CategoryRulesFile != "" {
		typeRules, err = services.LoadTypeRules(appConfig.CategoryRulesFile)
		if err != nil {
			return fmt.Errorf("failed to load category rules: %w", err)
		}
	}

	plaidClient, err := aggregator.NewPlaidClient(aggregator.PlaidConfig{
		ClientID:     appConfig.PlaidClientID,
		Secret:       appConfig.PlaidSecret,
		Env:          appConfig.PlaidEnv,
		ClientName:   appConfig.PlaidClientName,
		CountryCodes: appConfig.PlaidCountryCodes,
	})
	if err != nil {
		return fmt.Errorf("failed to create plaid client: %w", err)
	}

	verifier, err := auth.NewAuth0Verifier(ctx, appConfig.Auth0JWKSURL(), auth.VerifierOptions{
		Issuer:     appConfig.Auth0Issuer(),
		Audience:   appConfig.Auth0Audience,
		RolesClaim: appConfig.Auth0RolesClaim,
	})
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db)
	transactionService := services.NewTransactionService(db)
	exportService := services.NewExportService(db)
	auditService := services.NewAuditService(db)
	syncService := services.NewSyncService(db, plaidClient, services.NewReconcileService(typeRules), sealer,
		aggregator.DateRange{Start: appConfig.SyncWindowStart, End: appConfig.SyncWindowEnd})

	router := server.NewRouter(server.Handlers{
		User:        handlers.NewUserHandler(userService, auditService, appConfig.AdminRole),
		Plaid:       handlers.NewPlaidHandler(userService, syncService, auditService),
		Account:     handlers.NewAccountHandler(userService, accountService),
		Transaction: handlers.NewTransactionHandler(userService, transactionService, exportService),
	}, server.Options{
		Verifier:   verifier,
		AdminRole:  appConfig.AdminRole,
		CORSOrigin: appConfig.CORSOrigin,
		Metrics:    telemetry.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      otelhttp.NewHandler(router, "freedash-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting FreeDash server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
