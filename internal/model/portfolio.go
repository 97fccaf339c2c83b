package model

import "github.com/shopspring/decimal"

type Holding struct {
	UserID   int64
	Symbol   string
	Quantity int
}

// Position is a holding enriched with a live quote.
type Position struct {
	Symbol     string
	Shortname  string
	Quantity   int
	Price      decimal.Decimal
	TotalPrice decimal.Decimal
}

type Portfolio struct {
	Positions  []Position
	Cash       decimal.Decimal
	TotalValue decimal.Decimal
}
