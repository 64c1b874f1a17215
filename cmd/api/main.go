package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ultrastock/backend/internal/adapters/easyslip"
	"github.com/ultrastock/backend/internal/adapters/script"
	"github.com/ultrastock/backend/internal/adapters/telegram"
	"github.com/ultrastock/backend/internal/api"
	"github.com/ultrastock/backend/internal/application/payment"
	"github.com/ultrastock/backend/internal/domain/reconcile"
	"github.com/ultrastock/backend/internal/infrastructure/auth"
	"github.com/ultrastock/backend/internal/infrastructure/config"
	"github.com/ultrastock/backend/internal/infrastructure/logging"
	"github.com/ultrastock/backend/internal/infrastructure/storage"
)

func main() {
	cfg := config.LoadOrEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logging)

	tokens := auth.NewTokenService(cfg.Auth)
	verifier := easyslip.NewClient(cfg.EasySlip, logging.NewLoggerWithSystem(cfg.Logging, "easyslip"))
	notifier := telegram.NewClient(cfg.Telegram, logging.NewLoggerWithSystem(cfg.Logging, "telegram"))

	engine := reconcile.NewEngine(
		reconcile.WithMaxSlipAge(time.Duration(cfg.Payments.MaxSlipAgeHours) * time.Hour),
	)

	deps := payment.Deps{
		Verifier: verifier,
		Engine:   engine,
		Logger:   logging.NewLoggerWithSystem(cfg.Logging, "payment"),
	}
	if notifier.Configured() {
		deps.Notifier = notifier
	}

	serverDeps := api.Deps{
		Tokens:    tokens,
		Messenger: notifier,
		Logger:    logging.NewLoggerWithSystem(cfg.Logging, "api"),
	}

	// The scripting backend carries the full panel; the sqlite backend
	// covers the payment ledger for self-hosted deployments and leaves
	// the pass-through routes unavailable.
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		store, err := storage.NewStore(cfg.Storage.DatabasePath)
		if err != nil {
			logger.Error("opening database", "path", cfg.Storage.DatabasePath, "error", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()

		deps.Ledger = store
		deps.Duplicates = store
		deps.Accounts = store
		deps.Audit = store

	default:
		backend := script.NewClient(cfg.Script, logging.NewLoggerWithSystem(cfg.Logging, "script"))
		deps.Ledger = backend
		deps.Duplicates = backend
		deps.Accounts = backend
		deps.Audit = backend
		deps.Renewer = backend

		serverDeps.Users = backend
		serverDeps.Backend = backend
	}

	serverDeps.Payments = payment.NewService(deps)

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, serverDeps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
