package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed buy or sell. Quantity is signed: positive for
// buys, negative for sells. TotalPrice is always the absolute cost/proceeds.
type Trade struct {
	Symbol     string
	Shortname  string
	Quantity   int
	Price      decimal.Decimal
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}
