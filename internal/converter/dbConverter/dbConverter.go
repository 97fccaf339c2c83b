package dbConverter

import (
	"github.com/KotFed0t/stock_trading_sim/internal/model"
	"github.com/KotFed0t/stock_trading_sim/internal/model/dbModel"
)

func ConvertAccount(dbAccount dbModel.Account) model.Account {
	return model.Account{
		UserID:    dbAccount.UserID,
		Username:  dbAccount.Username,
		PwdHash:   dbAccount.PwdHash,
		Cash:      dbAccount.Cash,
		CreatedAt: dbAccount.CreatedAt,
	}
}

func ConvertHolding(dbHolding dbModel.Holding) model.Holding {
	return model.Holding{
		UserID:   dbHolding.UserID,
		Symbol:   dbHolding.Symbol,
		Quantity: dbHolding.Quantity,
	}
}

func ConvertTrade(dbTrade dbModel.Trade) model.Trade {
	return model.Trade{
		Symbol:     dbTrade.Symbol,
		Shortname:  dbTrade.Shortname,
		Quantity:   dbTrade.Quantity,
		Price:      dbTrade.Price,
		TotalPrice: dbTrade.TotalPrice,
		CreatedAt:  dbTrade.CreatedAt,
	}
}
