package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"paperTrader/config"
	"paperTrader/internal/adapters/binanceclient"
	"paperTrader/internal/adapters/memory"
	"paperTrader/internal/app"
	"paperTrader/internal/bootstrap"
)

// Looks up one or more symbols with the configured quote provider.
//
//	go run ./cmd/quote AAPL MSFT
func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: quote SYMBOL [SYMBOL...]")
		os.Exit(2)
	}
	os.Exit(run(os.Stdout, flag.Args()))
}

func run(out io.Writer, symbols []string) int {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
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

	// 3. Initialize Quote Provider
	quotes, err := bootstrap.QuoteProvider(cfg, appLogger)
	if err != nil {
		log.Printf("FATAL: Failed to initialize quote provider: %v", err)
		return 2
	}
	if bc, ok := quotes.(*binanceclient.Client); ok {
		if err := bc.Ping(context.Background()); err != nil {
			log.Printf("Binance is unreachable: %v", err)
			return 2
		}
	}

	// Quotes never touch the ledger.
	ledger, err := app.NewLedgerService(cfg, appLogger, memory.NewStore(), quotes)
	if err != nil {
		log.Printf("FATAL: Failed to initialize ledger service: %v", err)
		return 2
	}

	code := 0
	for _, symbol := range symbols {
		q, err := ledger.Quote(context.Background(), symbol)
		if err != nil {
			fmt.Fprintf(out, "%-10s error: %v\n", symbol, err)
			code = 1
			continue
		}
		fmt.Fprintf(out, "%-10s %-30s %s\n", q.Symbol, q.Name, q.Price)
	}
	return code
}
