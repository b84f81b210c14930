package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the only currency the ledger knows about.
const CurrencyCode = money.USD

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Money is an amount of US dollars held as a whole number of cents.
// All ledger arithmetic happens on this type; floats never touch a balance.
type Money int64

// Cents returns the raw number of cents.
func (m Money) Cents() int64 { return int64(m) }

// Decimal returns the amount in dollars as an exact decimal.
func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -2) }

// String formats the amount for display, e.g. "$1,234.56".
func (m Money) String() string {
	return money.New(int64(m), CurrencyCode).Display()
}

// Plain formats the amount without grouping or symbol, e.g. "1234.56".
func (m Money) Plain() string { return m.Decimal().StringFixed(2) }

func (m Money) IsNegative() bool { return m < 0 }

// Add returns m+n or ErrAmountOverflow.
func (m Money) Add(n Money) (Money, error) {
	if (n > 0 && m > math.MaxInt64-n) || (n < 0 && m < math.MinInt64-n) {
		return 0, ErrAmountOverflow
	}
	return m + n, nil
}

// Sub returns m-n or ErrAmountOverflow.
func (m Money) Sub(n Money) (Money, error) {
	if (n < 0 && m > math.MaxInt64+n) || (n > 0 && m < math.MinInt64+n) {
		return 0, ErrAmountOverflow
	}
	return m - n, nil
}

// MulShares returns m*shares or ErrAmountOverflow.
func (m Money) MulShares(shares int64) (Money, error) {
	if m == 0 || shares == 0 {
		return 0, nil
	}
	if (m == -1 && shares == math.MinInt64) || (shares == -1 && m == math.MinInt64) {
		return 0, ErrAmountOverflow
	}
	r := int64(m) * shares
	if r/shares != int64(m) {
		return 0, ErrAmountOverflow
	}
	return Money(r), nil
}

// MoneyFromDecimal rounds d (in dollars) half away from zero to the cent.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, ErrAmountOverflow
	}
	return Money(cents.IntPart()), nil
}

// ParseMoney parses a dollar amount such as "150", "150.5" or "150.25".
// Amounts with more than two decimal places are rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, fmt.Errorf("invalid amount %q: at most 2 decimal places", s)
	}
	return MoneyFromDecimal(d)
}

// MustParseMoney is ParseMoney for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MarshalJSON encodes the amount as a fixed two-decimal string so clients never
// see a binary float.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Plain())
}

// UnmarshalJSON accepts either a JSON string ("150.00") or a JSON number (150.00).
func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
