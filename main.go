package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"paperTrader/config"
	"paperTrader/internal/adapters/httpapi"
	"paperTrader/internal/app"
	"paperTrader/internal/bootstrap"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code.
func run() int {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
		return 1
	}

	// 2. Initialize Logger
	appLogger, flush, err := bootstrap.Logger(cfg, os.Stderr)
	if err != nil {
		log.Printf("FATAL: Failed to initialize logger: %v", err)
		return 1
	}
	defer flush()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Ledger Store (SQLite or in-memory adapter)
	repo, err := bootstrap.Ledger(cfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize ledger store")
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing ledger store")
		}
	}()
	appLogger.Info(context.Background(), "Ledger store initialized", map[string]interface{}{"store": cfg.LedgerStore})

	// 4. Initialize Quote Provider
	quotes, err := bootstrap.QuoteProvider(cfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize quote provider")
		return 1
	}

	// 5. Initialize Application Service
	ledger, err := app.NewLedgerService(cfg, appLogger, repo, quotes)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize ledger service")
		return 1
	}
	appLogger.Info(context.Background(), "Ledger service initialized")

	// 6. Serve HTTP until SIGINT/SIGTERM
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      httpapi.NewRouter(ledger, appLogger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info(context.Background(), "Server starting", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		appLogger.Info(context.Background(), "Shutdown signal received", map[string]interface{}{"signal": sig.String()})
	case err, ok := <-serveErr:
		if ok {
			appLogger.Error(context.Background(), err, "Server exited with error")
			return 1
		}
	}

	// 7. Graceful shutdown: let in-flight trades commit before the store closes
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(context.Background(), err, "Server shutdown error")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
	return 0
}
