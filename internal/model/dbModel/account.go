package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	UserID    int64           `db:"user_id"`
	Username  string          `db:"username"`
	PwdHash   string          `db:"pwd_hash"`
	Cash      decimal.Decimal `db:"cash"`
	CreatedAt time.Time       `db:"dt_create"`
}
