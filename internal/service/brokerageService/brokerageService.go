package brokerageService

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/stock_trading_sim/config"
	"github.com/KotFed0t/stock_trading_sim/data/repository"
	"github.com/KotFed0t/stock_trading_sim/internal/externalApi"
	"github.com/KotFed0t/stock_trading_sim/internal/model"
	"github.com/KotFed0t/stock_trading_sim/internal/service"
	"github.com/KotFed0t/stock_trading_sim/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type QuoteApi interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]model.Quote, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
	SetQuotes(ctx context.Context, quotes []model.Quote) error
}

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	CreateAccount(ctx context.Context, username, pwdHash string, startingCash decimal.Decimal) (userID int64, err error)
	GetAccountByUsername(ctx context.Context, username string) (model.Account, error)
	GetAccountByID(ctx context.Context, userID int64) (model.Account, error)
	GetCashBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	WithdrawCash(ctx context.Context, userID int64, amount decimal.Decimal) error
	DepositCash(ctx context.Context, userID int64, amount decimal.Decimal) error
	GetHolding(ctx context.Context, userID int64, symbol string) (model.Holding, error)
	GetHoldings(ctx context.Context, userID int64) ([]model.Holding, error)
	GetAllHeldSymbols(ctx context.Context) ([]string, error)
	AddToHolding(ctx context.Context, userID int64, symbol string, quantity int) error
	SubtractFromHolding(ctx context.Context, userID int64, symbol string, quantity int) error
	InsertTradeToHistory(ctx context.Context, userID int64, trade model.Trade) error
	GetTradesHistory(ctx context.Context, userID int64) ([]model.Trade, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, trades []model.Trade) (fileBytes []byte, fileExtension string, err error)
}

type BrokerageService struct {
	cfg             *config.Config
	repo            Repository
	cache           Cache
	quoteApi        QuoteApi
	reportGenerator ReportGenerator
	startingCash    decimal.Decimal
}

func New(cfg *config.Config, repo Repository, cache Cache, quoteApi QuoteApi, reportGenerator ReportGenerator) *BrokerageService {
	startingCash, err := decimal.NewFromString(cfg.StartingCash)
	if err != nil {
		log.Fatalf("invalid STARTING_CASH %q: %s", cfg.StartingCash, err)
	}

	return &BrokerageService{
		cfg:             cfg,
		repo:            repo,
		cache:           cache,
		quoteApi:        quoteApi,
		reportGenerator: reportGenerator,
		startingCash:    startingCash,
	}
}

func (s *BrokerageService) RegisterUser(ctx context.Context, username, password string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.RegisterUser"

	slog.Debug("RegisterUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("RegisterUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	pwdHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("got error from bcrypt.GenerateFromPassword", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	userID, err = s.repo.CreateAccount(ctx, username, string(pwdHash), s.startingCash)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, service.ErrUsernameTaken
		}
		slog.Error("got error from repo.CreateAccount", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return userID, nil
}

func (s *BrokerageService) AuthenticateUser(ctx context.Context, username, password string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.AuthenticateUser"

	slog.Debug("AuthenticateUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("AuthenticateUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	account, err := s.repo.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, service.ErrInvalidCredentials
		}
		slog.Error("got error from repo.GetAccountByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PwdHash), []byte(password)); err != nil {
		return 0, service.ErrInvalidCredentials
	}

	return account.UserID, nil
}

// GetQuote resolves a symbol via the cache or the quote provider. The symbol
// is normalized to upper case before lookup.
func (s *BrokerageService) GetQuote(ctx context.Context, symbol string) (quote model.Quote, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.GetQuote"

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetQuote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Quote{}, service.ErrSymbolNotFound
	}

	quote, err = s.cache.GetQuote(ctx, symbol)
	if err == nil {
		return quote, nil
	}

	quote, err = s.quoteApi.GetQuote(ctx, symbol)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("symbol not found in quoteApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
			return model.Quote{}, service.ErrSymbolNotFound
		}
		if errors.Is(err, externalApi.ErrUnavailable) {
			slog.Error("quoteApi unavailable", slog.String("rqID", rqID), slog.String("op", op))
			return model.Quote{}, service.ErrQuoteUnavailable
		}
		slog.Error("can't get quote from quoteApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	go s.cache.SetQuote(context.WithoutCancel(ctx), quote)

	return quote, nil
}

func (s *BrokerageService) GetPortfolio(ctx context.Context, userID int64) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	cash, err := s.repo.GetCashBalance(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetCashBalance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	holdings, err := s.repo.GetHoldings(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	portfolio.Cash = cash
	portfolio.TotalValue = cash
	portfolio.Positions = make([]model.Position, 0, len(holdings))

	for _, holding := range holdings {
		quote, err := s.GetQuote(ctx, holding.Symbol)
		if err != nil {
			if errors.Is(err, service.ErrSymbolNotFound) {
				// the symbol resolved when it was bought, so this is a
				// data-integrity problem on the provider side
				slog.Error("held symbol no longer resolves, skipping", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", holding.Symbol))
				continue
			}
			return model.Portfolio{}, err
		}

		totalPrice := quote.Price.Mul(decimal.NewFromInt(int64(holding.Quantity))).Round(2)

		portfolio.Positions = append(portfolio.Positions, model.Position{
			Symbol:     quote.Symbol,
			Shortname:  quote.Shortname,
			Quantity:   holding.Quantity,
			Price:      quote.Price,
			TotalPrice: totalPrice,
		})

		portfolio.TotalValue = portfolio.TotalValue.Add(totalPrice)
	}

	return portfolio, nil
}

// Buy resolves the quote once and uses that price for both validation and
// execution. All three mutations happen in one transaction; the conditional
// cash update guarantees that concurrent buys can't overspend the balance.
func (s *BrokerageService) Buy(ctx context.Context, userID int64, symbol string, quantity int) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.Buy"

	slog.Debug("Buy start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("symbol", symbol), slog.Int("quantity", quantity))
	defer func() {
		slog.Debug("Buy finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("symbol", symbol))
	}()

	quote, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return service.ErrInvalidQuantity
	}

	cost := quote.Price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)

	trade := model.Trade{
		Symbol:     quote.Symbol,
		Shortname:  quote.Shortname,
		Quantity:   quantity,
		Price:      quote.Price,
		TotalPrice: cost,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.WithdrawCash(ctx, userID, cost); err != nil {
			return err
		}
		if err := s.repo.AddToHolding(ctx, userID, quote.Symbol, quantity); err != nil {
			return err
		}
		return s.repo.InsertTradeToHistory(ctx, userID, trade)
	})

	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return service.ErrInsufficientFunds
		}
		slog.Error("buy transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// Sell mirrors Buy: one quote fetch, one transaction. The conditional holding
// update rejects selling more shares than are held.
func (s *BrokerageService) Sell(ctx context.Context, userID int64, symbol string, quantity int) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.Sell"

	slog.Debug("Sell start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("symbol", symbol), slog.Int("quantity", quantity))
	defer func() {
		slog.Debug("Sell finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("symbol", symbol))
	}()

	quote, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return service.ErrInvalidQuantity
	}

	proceeds := quote.Price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)

	trade := model.Trade{
		Symbol:     quote.Symbol,
		Shortname:  quote.Shortname,
		Quantity:   -quantity,
		Price:      quote.Price,
		TotalPrice: proceeds,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SubtractFromHolding(ctx, userID, quote.Symbol, quantity); err != nil {
			return err
		}
		if err := s.repo.DepositCash(ctx, userID, proceeds); err != nil {
			return err
		}
		return s.repo.InsertTradeToHistory(ctx, userID, trade)
	})

	if err != nil {
		if errors.Is(err, repository.ErrInsufficientShares) {
			return service.ErrInsufficientShares
		}
		slog.Error("sell transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// DepositCash adds funds to the account. Fractional amounts with up to two
// decimal places are accepted. Deposits are not recorded in the trade ledger.
func (s *BrokerageService) DepositCash(ctx context.Context, userID int64, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.DepositCash"

	slog.Debug("DepositCash start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("amount", amount.String()))
	defer func() {
		slog.Debug("DepositCash finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return service.ErrInvalidAmount
	}

	err = s.repo.DepositCash(ctx, userID, amount)
	if err != nil {
		slog.Error("got error from repo.DepositCash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *BrokerageService) GetHistory(ctx context.Context, userID int64) (trades []model.Trade, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.GetHistory"

	slog.Debug("GetHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("GetHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	trades, err = s.repo.GetTradesHistory(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetTradesHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return trades, nil
}

func (s *BrokerageService) ExportHistory(ctx context.Context, userID int64) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.ExportHistory"

	slog.Debug("ExportHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("ExportHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	trades, err := s.repo.GetTradesHistory(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetTradesHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	fileBytes, fileExtension, err = s.reportGenerator.Generate(ctx, trades)
	if err != nil {
		slog.Error("got error from reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fileExtension, nil
}

// RefreshQuoteCache warms the cache for every symbol anyone currently holds.
// Runs as a scheduler job.
func (s *BrokerageService) RefreshQuoteCache(ctx context.Context) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BrokerageService.RefreshQuoteCache"

	slog.Debug("RefreshQuoteCache start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshQuoteCache finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	symbols, err := s.repo.GetAllHeldSymbols(ctx)
	if err != nil {
		slog.Error("got error from repo.GetAllHeldSymbols", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(symbols) == 0 {
		return nil
	}

	quotesMap, err := s.quoteApi.GetQuotes(ctx, symbols)
	if err != nil {
		slog.Error("got error from quoteApi.GetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	quotes := make([]model.Quote, 0, len(quotesMap))
	for _, quote := range quotesMap {
		quotes = append(quotes, quote)
	}

	err = s.cache.SetQuotes(ctx, quotes)
	if err != nil {
		slog.Error("got error from cache.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
