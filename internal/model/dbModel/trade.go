package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trade struct {
	TradeID    int64           `db:"trade_id"`
	UserID     int64           `db:"user_id"`
	Symbol     string          `db:"symbol"`
	Shortname  string          `db:"shortname"`
	Quantity   int             `db:"quantity"`
	Price      decimal.Decimal `db:"price"`
	TotalPrice decimal.Decimal `db:"total_price"`
	CreatedAt  time.Time       `db:"dt_create"`
}
