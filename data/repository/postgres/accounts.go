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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func (r *Postgres) CreateAccount(ctx context.Context, username, pwdHash string, startingCash decimal.Decimal) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CreateAccount"
	query := `INSERT INTO users(username, pwd_hash, cash) VALUES($1, $2, $3) RETURNING user_id`

	slog.Debug("CreateAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreateAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, username, pwdHash, startingCash).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return 0, repository.ErrAlreadyExists
			}
		}
		return 0, err
	}

	return userID, nil
}

func (r *Postgres) GetAccountByUsername(ctx context.Context, username string) (account model.Account, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAccountByUsername"
	query := `
		SELECT user_id, username, pwd_hash, cash, dt_create
		FROM users
		WHERE username = $1
		`

	slog.Debug("GetAccountByUsername start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAccountByUsername failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccountByUsername completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbAccount := dbModel.Account{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, username).StructScan(&dbAccount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, repository.ErrNotFound
		}
		return model.Account{}, err
	}

	return dbConverter.ConvertAccount(dbAccount), nil
}

func (r *Postgres) GetAccountByID(ctx context.Context, userID int64) (account model.Account, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAccountByID"
	query := `
		SELECT user_id, username, pwd_hash, cash, dt_create
		FROM users
		WHERE user_id = $1
		`

	slog.Debug("GetAccountByID start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAccountByID failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccountByID completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbAccount := dbModel.Account{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID).StructScan(&dbAccount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, repository.ErrNotFound
		}
		return model.Account{}, err
	}

	return dbConverter.ConvertAccount(dbAccount), nil
}

func (r *Postgres) GetCashBalance(ctx context.Context, userID int64) (cash decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetCashBalance"
	query := `SELECT cash FROM users WHERE user_id = $1`

	slog.Debug("GetCashBalance start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetCashBalance failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetCashBalance completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, userID).Scan(&cash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Decimal{}, repository.ErrNotFound
		}
		return decimal.Decimal{}, err
	}

	return cash, nil
}

// WithdrawCash decrements the balance only when it covers the amount, so two
// concurrent withdrawals can never overdraw the account.
func (r *Postgres) WithdrawCash(ctx context.Context, userID int64, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.WithdrawCash"
	query := `
		UPDATE users
		SET cash = cash - $1
		WHERE user_id = $2
		AND cash >= $1
		`

	slog.Debug("WithdrawCash start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("WithdrawCash failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("WithdrawCash completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, amount, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrInsufficientFunds
	}

	return nil
}

func (r *Postgres) DepositCash(ctx context.Context, userID int64, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DepositCash"
	query := `
		UPDATE users
		SET cash = cash + $1
		WHERE user_id = $2
		`

	slog.Debug("DepositCash start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DepositCash failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DepositCash completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, amount, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
