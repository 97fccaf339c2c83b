package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/stock_trading_sim/internal/converter/dbConverter"
	"github.com/KotFed0t/stock_trading_sim/internal/model"
	"github.com/KotFed0t/stock_trading_sim/internal/model/dbModel"
	"github.com/KotFed0t/stock_trading_sim/utils"
)

func (r *Postgres) InsertTradeToHistory(ctx context.Context, userID int64, trade model.Trade) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTradeToHistory"
	query := `
		INSERT INTO trades_history(user_id, symbol, shortname, quantity, price, total_price, dt_create)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	slog.Debug(
		"InsertTradeToHistory start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Any("trade", trade),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertTradeToHistory failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTradeToHistory completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		userID,
		trade.Symbol,
		trade.Shortname,
		trade.Quantity,
		trade.Price,
		trade.TotalPrice,
		trade.CreatedAt,
	)

	if err != nil {
		return err
	}
	return nil
}

// GetTradesHistory returns the user's trades oldest first. trade_id breaks
// timestamp ties in insertion order.
func (r *Postgres) GetTradesHistory(ctx context.Context, userID int64) (trades []model.Trade, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTradesHistory"
	query := `
		SELECT trade_id, user_id, symbol, shortname, quantity, price, total_price, dt_create
		FROM trades_history
		WHERE user_id = $1
		ORDER BY dt_create, trade_id
		`

	slog.Debug("GetTradesHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTradesHistory failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTradesHistory completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var trade dbModel.Trade
		err = rows.StructScan(&trade)
		if err != nil {
			return nil, err
		}
		trades = append(trades, dbConverter.ConvertTrade(trade))
	}

	return trades, nil
}
