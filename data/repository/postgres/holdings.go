package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/stock_trading_sim/data/repository"
	"github.com/KotFed0t/stock_trading_sim/internal/converter/dbConverter"
	"github.com/KotFed0t/stock_trading_sim/internal/model"
	"github.com/KotFed0t/stock_trading_sim/internal/model/dbModel"
	"github.com/KotFed0t/stock_trading_sim/utils"
)

func (r *Postgres) GetHolding(ctx context.Context, userID int64, symbol string) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHolding"
	query := `
		SELECT user_id, symbol, quantity
		FROM holdings
		WHERE user_id = $1
		AND symbol = $2
		`

	slog.Debug("GetHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHolding completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbHolding := dbModel.Holding{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID, symbol).StructScan(&dbHolding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Holding{}, repository.ErrNotFound
		}
		return model.Holding{}, err
	}

	return dbConverter.ConvertHolding(dbHolding), nil
}

func (r *Postgres) GetHoldings(ctx context.Context, userID int64) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHoldings"
	query := `
		SELECT user_id, symbol, quantity
		FROM holdings
		WHERE user_id = $1
		ORDER BY symbol
		`

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldings failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldings completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var holding dbModel.Holding
		err = rows.StructScan(&holding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(holding))
	}

	return holdings, nil
}

func (r *Postgres) GetAllHeldSymbols(ctx context.Context) (symbols []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAllHeldSymbols"
	query := `SELECT DISTINCT symbol FROM holdings ORDER BY symbol`

	slog.Debug("GetAllHeldSymbols start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAllHeldSymbols failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAllHeldSymbols completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &symbols, query)
	if err != nil {
		return nil, err
	}

	return symbols, nil
}

// AddToHolding creates the holding on first buy and increments it on
// subsequent buys of the same symbol.
func (r *Postgres) AddToHolding(ctx context.Context, userID int64, symbol string, quantity int) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AddToHolding"
	query := `
		INSERT INTO holdings(user_id, symbol, quantity)
		VALUES($1, $2, $3)
		ON CONFLICT (user_id, symbol) DO UPDATE
		SET quantity = holdings.quantity + EXCLUDED.quantity
		`

	slog.Debug("AddToHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("AddToHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddToHolding completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID, symbol, quantity)
	if err != nil {
		return err
	}

	return nil
}

// SubtractFromHolding decrements the share count only when enough shares are
// held, deleting the row when it reaches exactly zero.
func (r *Postgres) SubtractFromHolding(ctx context.Context, userID int64, symbol string, quantity int) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SubtractFromHolding"
	updateQuery := `
		UPDATE holdings
		SET quantity = quantity - $1
		WHERE user_id = $2
		AND symbol = $3
		AND quantity >= $1
		`
	deleteQuery := `
		DELETE FROM holdings
		WHERE user_id = $1
		AND symbol = $2
		AND quantity = 0
		`

	slog.Debug("SubtractFromHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", updateQuery))
	defer func() {
		if err != nil {
			slog.Error("SubtractFromHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SubtractFromHolding completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, updateQuery, quantity, userID, symbol)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrInsufficientShares
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, deleteQuery, userID, symbol)
	if err != nil {
		return err
	}

	return nil
}
