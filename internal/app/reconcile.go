package app

import (
	"context"
	"sort"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// Discrepancy is a symbol whose holding disagrees with the history.
type Discrepancy struct {
	Symbol   string
	Expected int64 // Net shares derived from the history
	Actual   int64 // Shares in the holdings table, 0 when absent
}

// Reconciliation is the result of checking one account's holdings against its history.
type Reconciliation struct {
	AccountID     string
	Holdings      int // Number of holdings checked
	Transactions  int // Number of history entries replayed
	Discrepancies []Discrepancy
}

// Clean reports whether holdings and history agree.
func (r *Reconciliation) Clean() bool { return len(r.Discrepancies) == 0 }

// Reconcile replays the account's history and compares the derived share
// counts with the stored holdings.
func (s *LedgerService) Reconcile(ctx context.Context, accountID string) (*Reconciliation, error) {
	ctx = ports.WithAccountID(ctx, accountID)
	unlock := s.locks.lock(accountID)
	defer unlock()

	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, s.classify(ctx, "Reconcile", accountID, err)
	}
	records, err := s.repo.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, s.classify(ctx, "Reconcile", accountID, err)
	}
	holdings, err := s.repo.ListHoldings(ctx, accountID)
	if err != nil {
		return nil, s.classify(ctx, "Reconcile", accountID, err)
	}

	expected := domain.DeriveHoldings(records)
	actual := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		actual[h.Symbol] = h.Shares
	}

	symbols := make(map[string]struct{}, len(expected)+len(actual))
	for sym := range expected {
		symbols[sym] = struct{}{}
	}
	for sym := range actual {
		symbols[sym] = struct{}{}
	}

	r := &Reconciliation{AccountID: accountID, Holdings: len(holdings), Transactions: len(records)}
	for sym := range symbols {
		if expected[sym] != actual[sym] {
			r.Discrepancies = append(r.Discrepancies, Discrepancy{Symbol: sym, Expected: expected[sym], Actual: actual[sym]})
		}
	}
	sort.Slice(r.Discrepancies, func(i, j int) bool { return r.Discrepancies[i].Symbol < r.Discrepancies[j].Symbol })

	if !r.Clean() {
		s.logger.Warn(ctx, "Holdings disagree with history", map[string]interface{}{
			"discrepancies": len(r.Discrepancies),
		})
	}
	return r, nil
}

// ReconcileAll reconciles every account, oldest first.
func (s *LedgerService) ReconcileAll(ctx context.Context) ([]*Reconciliation, error) {
	ids, err := s.repo.ListAccountIDs(ctx)
	if err != nil {
		return nil, s.classify(ctx, "ReconcileAll", "", err)
	}
	results := make([]*Reconciliation, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := s.Reconcile(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
