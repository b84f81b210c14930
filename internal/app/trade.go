package app

import (
	"context"
	"fmt"
	"math"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
	"paperTrader/internal/pricing"
)

// TradeResult describes a committed trade.
type TradeResult struct {
	Record *domain.TransactionRecord // The appended history entry
	Quote  *domain.Quote             // Quote the trade executed at
	Cash   domain.Money              // Cash balance after the trade
}

// Buy purchases shares of symbol at the current quote. Cash, the holding and
// the history entry are written in one transaction or not at all.
func (s *LedgerService) Buy(ctx context.Context, accountID, symbol, rawShares string) (*TradeResult, error) {
	return s.trade(ctx, domain.Buy, accountID, symbol, rawShares)
}

// Sell sells shares of symbol at the current quote.
func (s *LedgerService) Sell(ctx context.Context, accountID, symbol, rawShares string) (*TradeResult, error) {
	return s.trade(ctx, domain.Sell, accountID, symbol, rawShares)
}

func (s *LedgerService) trade(ctx context.Context, side domain.OrderSide, accountID, symbol, rawShares string) (*TradeResult, error) {
	ctx = ports.WithAccountID(ctx, accountID)
	op := "Buy"
	if side == domain.Sell {
		op = "Sell"
	}

	// 1. Validate the share count before any network call
	shares, err := pricing.ValidateShareCount(rawShares)
	if err != nil {
		return nil, s.classify(ctx, op, accountID, err)
	}

	// 2. Resolve the quote outside the account lock
	quote, err := s.lookupQuote(ctx, symbol)
	if err != nil {
		return nil, s.classify(ctx, op, accountID, err)
	}

	// 3. Check and mutate under the account lock in a single transaction
	unlock := s.locks.lock(accountID)
	defer unlock()

	var result *TradeResult
	err = s.repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		var txErr error
		if side == domain.Buy {
			result, txErr = s.applyBuy(ctx, tx, accountID, quote, shares)
		} else {
			result, txErr = s.applySell(ctx, tx, accountID, quote, shares)
		}
		return txErr
	})
	if err != nil {
		return nil, s.classify(ctx, op, accountID, err)
	}

	s.logger.Info(ctx, "Trade executed", map[string]interface{}{
		"side":   side,
		"symbol": quote.Symbol,
		"shares": shares,
		"price":  quote.Price.Plain(),
		"cash":   result.Cash.Plain(),
		"seq":    result.Record.Seq,
	})
	return result, nil
}

func (s *LedgerService) applyBuy(ctx context.Context, tx ports.LedgerTx, accountID string, quote *domain.Quote, shares int64) (*TradeResult, error) {
	acc, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	cost, err := pricing.Cost(shares, quote.Price)
	if err != nil || !pricing.CanAfford(acc.Cash, cost) {
		return nil, fmt.Errorf("buying %d %s at %s needs more than %s: %w",
			shares, quote.Symbol, quote.Price, acc.Cash, domain.ErrInsufficientFunds)
	}
	cash := acc.Cash - cost // cost <= cash, both non-negative

	held, err := tx.FindHolding(ctx, accountID, quote.Symbol)
	if err != nil {
		return nil, err
	}
	newShares := shares
	if held != nil {
		if held.Shares > math.MaxInt64-shares {
			return nil, &domain.ValidationError{Message: "position size exceeds the supported maximum"}
		}
		newShares = held.Shares + shares
	}
	total, err := quote.Price.MulShares(newShares)
	if err != nil {
		return nil, &domain.ValidationError{Message: "position value exceeds the supported maximum"}
	}

	return s.commitTrade(ctx, tx, accountID, quote, shares, cash, newShares, total)
}

func (s *LedgerService) applySell(ctx context.Context, tx ports.LedgerTx, accountID string, quote *domain.Quote, shares int64) (*TradeResult, error) {
	acc, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	held, err := tx.FindHolding(ctx, accountID, quote.Symbol)
	if err != nil {
		return nil, err
	}
	var heldShares int64
	if held != nil {
		heldShares = held.Shares
	}
	if !pricing.CanSell(heldShares, shares) {
		return nil, fmt.Errorf("selling %d %s with %d held: %w", shares, quote.Symbol, heldShares, domain.ErrInsufficientShares)
	}

	proceeds, err := pricing.Cost(shares, quote.Price)
	if err != nil {
		return nil, &domain.ValidationError{Message: "trade value exceeds the supported maximum"}
	}
	cash, err := acc.Cash.Add(proceeds)
	if err != nil {
		return nil, &domain.ValidationError{Message: "cash balance would exceed the supported maximum"}
	}

	remaining := heldShares - shares
	total, err := quote.Price.MulShares(remaining)
	if err != nil {
		return nil, &domain.ValidationError{Message: "position value exceeds the supported maximum"}
	}

	return s.commitTrade(ctx, tx, accountID, quote, -shares, cash, remaining, total)
}

// commitTrade writes the three mutations of a trade: cash, holding (deleted
// when remaining is zero) and the history entry carrying the signed delta.
func (s *LedgerService) commitTrade(
	ctx context.Context,
	tx ports.LedgerTx,
	accountID string,
	quote *domain.Quote,
	delta int64,
	cash domain.Money,
	remaining int64,
	total domain.Money,
) (*TradeResult, error) {
	executedAt := s.now().UTC()

	if err := tx.SetCash(ctx, accountID, cash); err != nil {
		return nil, err
	}

	if remaining == 0 {
		if err := tx.DeleteHolding(ctx, accountID, quote.Symbol); err != nil {
			return nil, err
		}
	} else {
		if err := tx.SaveHolding(ctx, &domain.Holding{
			AccountID: accountID,
			Symbol:    quote.Symbol,
			Name:      quote.Name,
			Shares:    remaining,
			Price:     quote.Price,
			Total:     total,
			UpdatedAt: executedAt,
		}); err != nil {
			return nil, err
		}
	}

	rec := &domain.TransactionRecord{
		AccountID:  accountID,
		Symbol:     quote.Symbol,
		Shares:     delta,
		Price:      quote.Price,
		ExecutedAt: executedAt,
	}
	if err := tx.AppendTransaction(ctx, rec); err != nil {
		return nil, err
	}

	return &TradeResult{Record: rec, Quote: quote, Cash: cash}, nil
}
