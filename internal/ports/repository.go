package ports

import (
	"context"

	"paperTrader/internal/domain"
)

// LedgerReader defines the read side of the ledger store. Both the repository and
// an open transaction satisfy it.
type LedgerReader interface {
	// GetAccount retrieves an account by ID.
	// Returns an error wrapping domain.ErrAccountNotFound if it does not exist.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	// FindHolding retrieves the holding for (accountID, symbol).
	// Returns nil, nil if the account holds no shares of the symbol.
	FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error)
	// ListHoldings retrieves all holdings of an account ordered by symbol.
	ListHoldings(ctx context.Context, accountID string) ([]*domain.Holding, error)
	// ListTransactions retrieves the account's history ordered by sequence, oldest first.
	ListTransactions(ctx context.Context, accountID string) ([]*domain.TransactionRecord, error)
}

// LedgerTx is a unit of work against the ledger. Writes made through it become
// visible together on commit or not at all.
type LedgerTx interface {
	LedgerReader
	// SetCash overwrites the account's cash balance.
	SetCash(ctx context.Context, accountID string, cash domain.Money) error
	// SaveHolding inserts or replaces the holding for (AccountID, Symbol).
	SaveHolding(ctx context.Context, h *domain.Holding) error
	// DeleteHolding removes the holding for (accountID, symbol).
	DeleteHolding(ctx context.Context, accountID, symbol string) error
	// AppendTransaction appends a record to the history and assigns its Seq.
	AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error
}

// LedgerRepository defines the interface for the durable ledger: accounts,
// holdings and the append-only transaction history.
type LedgerRepository interface {
	LedgerReader
	// CreateAccount saves a new account.
	CreateAccount(ctx context.Context, acc *domain.Account) error
	// ListAccountIDs returns every account ID, oldest account first.
	ListAccountIDs(ctx context.Context) ([]string, error)
	// WithinTx runs fn inside a transaction. If fn returns an error (or panics)
	// every write made through tx is discarded and the error is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
	// Close releases the underlying resources.
	Close() error
}
