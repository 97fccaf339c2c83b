package dbModel

type Holding struct {
	UserID   int64  `db:"user_id"`
	Symbol   string `db:"symbol"`
	Quantity int    `db:"quantity"`
}
