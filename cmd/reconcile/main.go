package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"paperTrader/config"
	"paperTrader/internal/adapters/staticquote"
	"paperTrader/internal/app"
	"paperTrader/internal/bootstrap"
)

// Replays every account's history and compares it with the stored holdings.
// Exits 1 when any account has drifted.
func main() {
	os.Exit(run(os.Stdout))
}

// run returns the exit code so deferred cleanup happens before the process exits.
func run(out io.Writer) int {
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

	// Reconciliation never prices anything, so an empty sheet stands in for the provider.
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

	results, err := ledger.ReconcileAll(context.Background())
	if err != nil {
		log.Printf("Error reconciling ledger: %v", err)
		return 2
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No accounts found.")
		return 0
	}

	if writeReport(out, results) > 0 {
		return 1
	}
	return 0
}

// writeReport prints the summary table, then the discrepancies if any, and
// returns the number of drifted accounts.
func writeReport(out io.Writer, results []*app.Reconciliation) int {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Account\tHoldings\tTrades\tStatus\t")
	drifted := 0
	for _, r := range results {
		status := "ok"
		if !r.Clean() {
			status = fmt.Sprintf("%d drifted", len(r.Discrepancies))
			drifted++
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", r.AccountID, r.Holdings, r.Transactions, status)
	}
	w.Flush()

	if drifted == 0 {
		return 0
	}

	fmt.Fprintln(out, "\n## Discrepancies (expected from history vs stored)")
	w = tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Account\tSymbol\tExpected\tStored\t")
	for _, r := range results {
		for _, d := range r.Discrepancies {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t\n", r.AccountID, d.Symbol, d.Expected, d.Actual)
		}
	}
	w.Flush()
	return drifted
}
