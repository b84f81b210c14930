package ports

import (
	"context"

	"paperTrader/internal/domain"
)

// QuoteProvider defines the interface for looking up the current price of a symbol.
// This abstraction keeps the ledger independent of any particular market data vendor.
type QuoteProvider interface {
	// Name identifies the provider in logs (e.g., "iex", "binance", "static").
	Name() string

	// Lookup returns a fresh quote for the given normalized symbol.
	// Returns an error wrapping ErrNotFound if the provider does not know the symbol.
	// Implementations must honor ctx cancellation and deadlines.
	Lookup(ctx context.Context, symbol string) (*domain.Quote, error)
}
