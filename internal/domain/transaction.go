package domain

import "time"

// TransactionRecord is one executed trade. Records are append-only.
type TransactionRecord struct {
	Seq        int64     // Store-assigned, strictly increasing
	AccountID  string    // Account that traded
	Symbol     string    // Ticker symbol
	Shares     int64     // Signed delta: positive for a buy, negative for a sell
	Price      Money     // Execution price per share
	ExecutedAt time.Time // Commit time
}

// Side returns Buy for positive deltas and Sell otherwise.
func (r *TransactionRecord) Side() OrderSide {
	if r.Shares > 0 {
		return Buy
	}
	return Sell
}

// CashDelta returns the effect of the trade on the account's cash:
// -(Shares * Price).
func (r *TransactionRecord) CashDelta() (Money, error) {
	gross, err := r.Price.MulShares(r.Shares)
	if err != nil {
		return 0, err
	}
	return Money(0).Sub(gross)
}

// DeriveHoldings sums share deltas per symbol. Symbols netting to zero are
// omitted, matching the rule that a Holding only exists while shares > 0.
func DeriveHoldings(records []*TransactionRecord) map[string]int64 {
	net := make(map[string]int64)
	for _, r := range records {
		net[r.Symbol] += r.Shares
	}
	for symbol, shares := range net {
		if shares == 0 {
			delete(net, symbol)
		}
	}
	return net
}
