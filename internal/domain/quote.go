package domain

import "time"

// Quote is a point-in-time price for a symbol. It is never persisted.
type Quote struct {
	Symbol    string    // Normalized ticker symbol
	Name      string    // Display name (company or pair)
	Price     Money     // Price per share, rounded to the cent
	FetchedAt time.Time // When the provider answered
}
