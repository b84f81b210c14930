package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"paperTrader/config"
	"paperTrader/internal/adapters/staticquote"
	"paperTrader/internal/app"
	"paperTrader/internal/bootstrap"
	"paperTrader/internal/domain"
	"paperTrader/internal/utils"
)

// Writes each account's transaction history to <dir>/<account_id>.csv.
func main() {
	outDir := flag.String("out", "data/history", "Directory for the exported CSV files")
	account := flag.String("account", "", "Export only this account")
	flag.Parse()

	os.Exit(run(os.Stdout, *outDir, *account))
}

// run returns the exit code so deferred cleanup happens before the process exits.
func run(out io.Writer, outDir, account string) int {
	// 1. Load Configuration
	cfg, err := config.LoadLedgerConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err)
		return 2
	}

	// 2. Initialize Logger
	appLogger, flush, err := bootstrap.Logger(cfg, os.Stderr)
	if err != nil {
		log.Printf("FATAL: Failed to initialize logger: %v", err)
		return 2
	}
	defer flush()

	// 3. Open the ledger
	repo, err := bootstrap.Ledger(cfg, appLogger)
	if err != nil {
		log.Printf("FATAL: Failed to open ledger: %v", err)
		return 2
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing ledger store")
		}
	}()

	// History never prices anything, so an empty sheet stands in for the provider.
	quotes, err := staticquote.Parse(strings.NewReader(""), appLogger)
	if err != nil {
		log.Printf("FATAL: %v", err)
		return 2
	}
	ledger, err := app.NewLedgerService(cfg, appLogger, repo, quotes)
	if err != nil {
		log.Printf("FATAL: Failed to initialize ledger service: %v", err)
		return 2
	}

	ctx := context.Background()
	ids := []string{account}
	if account == "" {
		if ids, err = repo.ListAccountIDs(ctx); err != nil {
			log.Printf("Error listing accounts: %v", err)
			return 1
		}
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Printf("Error creating %s: %v", outDir, err)
		return 1
	}

	for _, id := range ids {
		records, err := ledger.History(ctx, id)
		if err != nil {
			log.Printf("Error reading history of %s: %v", id, err)
			return 1
		}

		filename := filepath.Join(outDir, id+".csv")
		if err := writeFile(filename, records); err != nil {
			log.Printf("Error writing %s: %v", filename, err)
			return 1
		}
		fmt.Fprintf(out, "%s: %d transactions -> %s\n", id, len(records), filename)
	}
	return 0
}

func writeFile(filename string, records []*domain.TransactionRecord) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := utils.WriteTransactionsCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
