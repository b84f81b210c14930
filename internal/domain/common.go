package domain

// OrderSide represents the side of a trade (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// DefaultStartingCash is the balance a new account opens with when none is given.
const DefaultStartingCash Money = 10000_00
