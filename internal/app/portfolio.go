package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// maxConcurrentQuotes bounds the quote lookups one portfolio request issues at once.
const maxConcurrentQuotes = 8

// PortfolioLine is one holding valued at the current price.
type PortfolioLine struct {
	Symbol string
	Name   string
	Shares int64
	Price  domain.Money // Live quote, or the last trade price when Stale
	Value  domain.Money // Shares * Price
	Stale  bool         // The quote lookup failed and Price is the last trade price
}

// Portfolio is the valued view of an account.
type Portfolio struct {
	AccountID   string
	Holdings    []PortfolioLine // Sorted by symbol
	EquityValue domain.Money    // Sum of line values
	Cash        domain.Money
	GrandTotal  domain.Money // Cash + EquityValue
}

// Portfolio values every holding of the account at a live quote. A failed quote
// never fails the request: the line falls back to its last trade price.
func (s *LedgerService) Portfolio(ctx context.Context, accountID string) (*Portfolio, error) {
	ctx = ports.WithAccountID(ctx, accountID)
	// Read cash and holdings as one snapshot; trades on this account hold the same lock.
	unlock := s.locks.lock(accountID)
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		unlock()
		return nil, s.classify(ctx, "Portfolio", accountID, err)
	}
	holdings, err := s.repo.ListHoldings(ctx, accountID)
	unlock()
	if err != nil {
		return nil, s.classify(ctx, "Portfolio", accountID, err)
	}

	lines := make([]PortfolioLine, len(holdings))
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentQuotes)
	for i, h := range holdings {
		i, h := i, h
		lines[i] = PortfolioLine{Symbol: h.Symbol, Name: h.Name, Shares: h.Shares, Price: h.Price, Stale: true}
		g.Go(func() error {
			q, err := s.lookupQuote(ctx, h.Symbol)
			if err != nil {
				s.logger.Warn(ctx, "Using last trade price for portfolio line", map[string]interface{}{
					"symbol": h.Symbol,
					"error":  err.Error(),
				})
				return nil
			}
			lines[i].Price = q.Price
			lines[i].Stale = false
			if q.Name != "" {
				lines[i].Name = q.Name
			}
			return nil
		})
	}
	_ = g.Wait() // lookups never return an error

	p := &Portfolio{AccountID: accountID, Holdings: lines, Cash: acc.Cash}
	for i := range lines {
		value, err := lines[i].Price.MulShares(lines[i].Shares)
		if err == nil {
			lines[i].Value = value
			p.EquityValue, err = p.EquityValue.Add(value)
		}
		if err != nil {
			return nil, fmt.Errorf("valuing %s for account %s: %w", lines[i].Symbol, accountID, err)
		}
	}
	if p.GrandTotal, err = p.Cash.Add(p.EquityValue); err != nil {
		return nil, fmt.Errorf("valuing account %s: %w", accountID, err)
	}
	return p, nil
}
