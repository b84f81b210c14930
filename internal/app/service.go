package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paperTrader/config"
	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
	"paperTrader/internal/pricing"
)

// LedgerService orchestrates the ledger: it opens accounts, executes trades
// against live quotes and projects portfolios, history and reconciliation reports.
type LedgerService struct {
	logger       ports.Logger
	repo         ports.LedgerRepository
	quotes       ports.QuoteProvider
	quoteTimeout time.Duration
	startingCash domain.Money

	locks *accountLocks // Serializes validate-and-mutate per account

	now   func() time.Time
	newID func() string
}

// NewLedgerService creates a new application service instance.
func NewLedgerService(
	cfg *config.Config,
	logger ports.Logger,
	repo ports.LedgerRepository,
	quotes ports.QuoteProvider,
) (*LedgerService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || repo == nil || quotes == nil {
		return nil, fmt.Errorf("missing required dependencies for LedgerService")
	}

	// Validate config values needed by service
	if cfg.QuoteTimeout <= 0 {
		return nil, fmt.Errorf("configuration QuoteTimeout must be positive")
	}
	if cfg.StartingCash.IsNegative() {
		return nil, fmt.Errorf("configuration StartingCash cannot be negative")
	}

	return &LedgerService{
		logger:       logger,
		repo:         repo,
		quotes:       quotes,
		quoteTimeout: cfg.QuoteTimeout,
		startingCash: cfg.StartingCash,
		locks:        newAccountLocks(),
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

// OpenAccount creates an account holding initialCash, or the configured
// starting cash when initialCash is nil.
func (s *LedgerService) OpenAccount(ctx context.Context, initialCash *domain.Money) (*domain.Account, error) {
	cash := s.startingCash
	if initialCash != nil {
		cash = *initialCash
	}
	if cash.IsNegative() {
		return nil, &domain.ValidationError{Message: "initial cash cannot be negative"}
	}

	acc := &domain.Account{
		ID:        s.newID(),
		Cash:      cash,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return nil, s.classify(ctx, "OpenAccount", acc.ID, err)
	}
	s.logger.Info(ctx, "Account opened", map[string]interface{}{"accountID": acc.ID, "cash": acc.Cash.Plain()})
	return acc, nil
}

// Account returns the account's current state.
func (s *LedgerService) Account(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx = ports.WithAccountID(ctx, accountID)
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, s.classify(ctx, "Account", accountID, err)
	}
	return acc, nil
}

// Quote looks up the current price of a symbol.
func (s *LedgerService) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q, err := s.lookupQuote(ctx, symbol)
	if err != nil {
		s.logger.Warn(ctx, "Quote lookup failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return nil, err
	}
	return q, nil
}

// History returns the account's executed trades, oldest first.
func (s *LedgerService) History(ctx context.Context, accountID string) ([]*domain.TransactionRecord, error) {
	ctx = ports.WithAccountID(ctx, accountID)
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, s.classify(ctx, "History", accountID, err)
	}
	records, err := s.repo.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, s.classify(ctx, "History", accountID, err)
	}
	return records, nil
}

// lookupQuote normalizes the symbol and asks the provider for a price, bounded
// by the quote timeout. Every failure is reported as domain.ErrQuoteNotFound.
func (s *LedgerService) lookupQuote(ctx context.Context, rawSymbol string) (*domain.Quote, error) {
	symbol := pricing.NormalizeSymbol(rawSymbol)
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol: %w", domain.ErrQuoteNotFound)
	}

	qctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()

	q, err := s.quotes.Lookup(qctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s from %s: %w: %w", symbol, s.quotes.Name(), domain.ErrQuoteNotFound, err)
	}
	if q == nil || q.Price <= 0 {
		return nil, fmt.Errorf("quote %s from %s has no usable price: %w", symbol, s.quotes.Name(), domain.ErrQuoteNotFound)
	}

	quote := *q
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	if quote.Name == "" {
		quote.Name = quote.Symbol
	}
	return &quote, nil
}

// classify passes domain errors through and reports everything else coming
// out of the store as domain.ErrStorageFailure.
func (s *LedgerService) classify(ctx context.Context, op, accountID string, err error) error {
	fields := map[string]interface{}{"op": op}
	switch {
	case domain.IsRejection(err):
		fields["reason"] = err.Error()
		s.logger.Warn(ctx, op+": request rejected", fields)
		return err
	case errors.Is(err, domain.ErrStorageFailure):
		s.logger.Error(ctx, err, op+": storage failure", fields)
		return err
	default:
		wrapped := fmt.Errorf("%s %s: %w: %w", op, accountID, domain.ErrStorageFailure, err)
		s.logger.Error(ctx, wrapped, op+": storage failure", fields)
		return wrapped
	}
}
