// Package bootstrap builds the adapters selected by configuration. The server
// and the command-line tools share it so they open the ledger the same way.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"paperTrader/config"
	"paperTrader/internal/adapters/binanceclient"
	"paperTrader/internal/adapters/iexquote"
	"paperTrader/internal/adapters/logger"
	"paperTrader/internal/adapters/memory"
	"paperTrader/internal/adapters/sqlite"
	"paperTrader/internal/adapters/staticquote"
	"paperTrader/internal/ports"
)

// Logger returns the logger for cfg.LogFormat and a flush function to defer.
func Logger(cfg *config.Config, w io.Writer) (ports.Logger, func(), error) {
	if cfg.LogFormat == "json" {
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build JSON logger: %w", err)
		}
		return zl, func() { _ = zl.Sync() }, nil
	}
	return logger.NewStdLoggerTo(w, cfg.LogLevel), func() {}, nil
}

// Ledger opens the store named by cfg.LedgerStore.
func Ledger(cfg *config.Config, log ports.Logger) (ports.LedgerRepository, error) {
	switch cfg.LedgerStore {
	case config.StoreMemory:
		log.Warn(context.Background(), "Using in-memory ledger; balances are lost on exit")
		return memory.NewStore(), nil
	case config.StoreSQLite, "":
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: log})
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown ledger store %q: %w", cfg.LedgerStore, ports.ErrConfigurationError)
	}
}

// QuoteProvider builds the provider named by cfg.QuoteProvider.
func QuoteProvider(cfg *config.Config, log ports.Logger) (ports.QuoteProvider, error) {
	var (
		provider ports.QuoteProvider
		err      error
	)
	switch cfg.QuoteProvider {
	case config.ProviderIEX, "":
		var c *iexquote.Client
		c, err = iexquote.New(iexquote.Config{APIKey: cfg.APIKey, BaseURL: cfg.IEXBaseURL, Logger: log})
		provider = c
	case config.ProviderBinance:
		var c *binanceclient.Client
		c, err = binanceclient.New(binanceclient.Config{APIKey: cfg.APIKey, UseTestnet: cfg.BinanceUseTestnet, Logger: log})
		provider = c
	case config.ProviderStatic:
		var p *staticquote.Provider
		p, err = staticquote.Load(cfg.QuotesFile, log)
		provider = p
	default:
		return nil, fmt.Errorf("unknown quote provider %q: %w", cfg.QuoteProvider, ports.ErrConfigurationError)
	}
	if err != nil {
		return nil, err
	}
	log.Info(context.Background(), "Quote provider initialized", map[string]interface{}{"provider": provider.Name()})
	return provider, nil
}
