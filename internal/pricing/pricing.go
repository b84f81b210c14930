// Package pricing holds the side-effect free rules the trade engine applies
// before it touches the ledger.
package pricing

import (
	"errors"
	"strconv"
	"strings"

	"paperTrader/internal/domain"
)

// ValidateShareCount parses a raw share count. Only base-10 positive integers
// are accepted.
func ValidateShareCount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &domain.ShareCountError{Input: raw, Reason: domain.ReasonMissing}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		// A syntactically valid negative integer that overflows is still negative.
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && strings.HasPrefix(s, "-") {
			return 0, &domain.ShareCountError{Input: raw, Reason: domain.ReasonNegative}
		}
		return 0, &domain.ShareCountError{Input: raw, Reason: domain.ReasonNotInteger}
	}

	switch {
	case n == 0:
		return 0, &domain.ShareCountError{Input: raw, Reason: domain.ReasonZero}
	case n < 0:
		return 0, &domain.ShareCountError{Input: raw, Reason: domain.ReasonNegative}
	}
	return n, nil
}

// Cost returns shares * price in exact cents.
// Returns domain.ErrAmountOverflow if the product does not fit.
func Cost(shares int64, price domain.Money) (domain.Money, error) {
	return price.MulShares(shares)
}

// CanAfford reports whether cash covers cost.
func CanAfford(cash, cost domain.Money) bool {
	return cash >= cost
}

// CanSell reports whether held shares cover the requested amount.
func CanSell(held, requested int64) bool {
	return held >= requested
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
