package model

import "github.com/shopspring/decimal"

// Quote is a point-in-time price resolution for a ticker symbol.
// It is never persisted, only cached.
type Quote struct {
	Symbol    string
	Shortname string
	Price     decimal.Decimal
}
