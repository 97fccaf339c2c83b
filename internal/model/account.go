package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	UserID    int64
	Username  string
	PwdHash   string
	Cash      decimal.Decimal
	CreatedAt time.Time
}
