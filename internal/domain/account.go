package domain

import "time"

// Account is a user's cash balance under one identity.
type Account struct {
	ID        string    // Opaque identifier (uuid)
	Cash      Money     // Never negative
	CreatedAt time.Time // When the account was opened
}

// Holding is an account's current position in one symbol. It only exists while
// Shares > 0 and is a cache that can always be recomputed from the history.
type Holding struct {
	AccountID string
	Symbol    string
	Name      string    // Display name from the last quote
	Shares    int64     // Always > 0
	Price     Money     // Price of the last trade in this symbol
	Total     Money     // Shares * Price at the last trade
	UpdatedAt time.Time // Time of the last trade in this symbol
}
