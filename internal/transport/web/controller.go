package web

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KotFed0t/stock_trading_sim/config"
	"github.com/KotFed0t/stock_trading_sim/internal/model"
	"github.com/KotFed0t/stock_trading_sim/internal/service"
	"github.com/KotFed0t/stock_trading_sim/internal/transport/web/middleware"
	"github.com/KotFed0t/stock_trading_sim/utils"
	"github.com/shopspring/decimal"
)

const internalErrMsg = "something went wrong..."

type BrokerageService interface {
	RegisterUser(ctx context.Context, username, password string) (userID int64, err error)
	AuthenticateUser(ctx context.Context, username, password string) (userID int64, err error)
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	GetPortfolio(ctx context.Context, userID int64) (model.Portfolio, error)
	Buy(ctx context.Context, userID int64, symbol string, quantity int) error
	Sell(ctx context.Context, userID int64, symbol string, quantity int) error
	DepositCash(ctx context.Context, userID int64, amount decimal.Decimal) error
	GetHistory(ctx context.Context, userID int64) ([]model.Trade, error)
	ExportHistory(ctx context.Context, userID int64) (fileBytes []byte, fileExtension string, err error)
}

type Session interface {
	CreateSession(ctx context.Context, userID int64) (token string, err error)
	DeleteSession(ctx context.Context, token string) error
}

type Controller struct {
	cfg              *config.Config
	brokerageService BrokerageService
	session          Session
	templates        map[string]*template.Template
}

func NewController(cfg *config.Config, brokerageService BrokerageService, session Session) *Controller {
	return &Controller{
		cfg:              cfg,
		brokerageService: brokerageService,
		session:          session,
		templates:        mustParseTemplates(),
	}
}

func (ctrl *Controller) pageData(r *http.Request, title string) map[string]any {
	_, loggedIn := utils.GetUserIDFromCtx(r.Context())
	return map[string]any{
		"Title":    title,
		"LoggedIn": loggedIn,
	}
}

func (ctrl *Controller) apology(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	data := ctrl.pageData(r, "Error")
	data["Message"] = message
	ctrl.render(w, statusCode, "apology.html", data)
}

// apologyForErr maps the stable service error kinds to user-facing messages
// and 4xx statuses. Anything unrecognized is an internal error.
func (ctrl *Controller) apologyForErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrSymbolNotFound):
		ctrl.apology(w, r, http.StatusBadRequest, "stock not found")
	case errors.Is(err, service.ErrQuoteUnavailable):
		ctrl.apology(w, r, http.StatusBadGateway, "quote service is unavailable, try again later")
	case errors.Is(err, service.ErrInvalidQuantity):
		ctrl.apology(w, r, http.StatusBadRequest, "number of shares must be a positive integer")
	case errors.Is(err, service.ErrInvalidAmount):
		ctrl.apology(w, r, http.StatusBadRequest, "amount of cash must be positive")
	case errors.Is(err, service.ErrInsufficientFunds):
		ctrl.apology(w, r, http.StatusForbidden, "insufficient funds")
	case errors.Is(err, service.ErrInsufficientShares):
		ctrl.apology(w, r, http.StatusForbidden, "not enough shares")
	case errors.Is(err, service.ErrUsernameTaken):
		ctrl.apology(w, r, http.StatusForbidden, "username already taken")
	case errors.Is(err, service.ErrInvalidCredentials):
		ctrl.apology(w, r, http.StatusForbidden, "invalid username and/or password")
	default:
		ctrl.apology(w, r, http.StatusInternalServerError, internalErrMsg)
	}
}

func (ctrl *Controller) userIDFromCtx(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := utils.GetUserIDFromCtx(r.Context())
	if !ok {
		// Auth middleware guarantees a user id on protected routes
		rqID := utils.GetRequestIDFromCtx(r.Context())
		slog.Error("no userID in authenticated request context", slog.String("rqID", rqID))
		ctrl.apology(w, r, http.StatusInternalServerError, internalErrMsg)
	}
	return userID, ok
}

func (ctrl *Controller) Index(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctrl.userIDFromCtx(w, r)
	if !ok {
		return
	}

	portfolio, err := ctrl.brokerageService.GetPortfolio(r.Context(), userID)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	data := ctrl.pageData(r, "Portfolio")
	data["Portfolio"] = portfolio
	ctrl.render(w, http.StatusOK, "index.html", data)
}

func (ctrl *Controller) BuyPage(w http.ResponseWriter, r *http.Request) {
	ctrl.render(w, http.StatusOK, "buy.html", ctrl.pageData(r, "Buy"))
}

func (ctrl *Controller) ProcessBuy(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctrl.userIDFromCtx(w, r)
	if !ok {
		return
	}

	quantity, err := strconv.Atoi(r.FormValue("amount"))
	if err != nil {
		ctrl.apologyForErr(w, r, service.ErrInvalidQuantity)
		return
	}

	err = ctrl.brokerageService.Buy(r.Context(), userID, r.FormValue("symbol"), quantity)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ctrl *Controller) SellPage(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctrl.userIDFromCtx(w, r)
	if !ok {
		return
	}

	portfolio, err := ctrl.brokerageService.GetPortfolio(r.Context(), userID)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	data := ctrl.pageData(r, "Sell")
	data["Portfolio"] = portfolio
	ctrl.render(w, http.StatusOK, "sell.html", data)
}

func (ctrl *Controller) ProcessSell(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctrl.userIDFromCtx(w, r)
	if !ok {
		return
	}

	quantity, err := strconv.Atoi(r.FormValue("amount"))
	if err != nil {
		ctrl.apologyForErr(w, r, service.ErrInvalidQuantity)
		return
	}

	err = ctrl.brokerageService.Sell(r.Context(), userID, r.FormValue("symbol"), quantity)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ctrl *Controller) QuotePage(w http.ResponseWriter, r *http.Request) {
	ctrl.render(w, http.StatusOK, "quote.html", ctrl.pageData(r, "Quote"))
}

func (ctrl *Controller) ProcessQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := ctrl.brokerageService.GetQuote(r.Context(), r.FormValue("symbol"))
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	data := ctrl.pageData(r, "Quote")
	data["Quote"] = quote
	ctrl.render(w, http.StatusOK, "quote.html", data)
}

func (ctrl *Controller) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctrl.userIDFromCtx(w, r)
	if !ok {
		return
	}

	trades, err := ctrl.brokerageService.GetHistory(r.Context(), userID)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	data := ctrl.pageData(r, "History")
	data["Trades"] = trades
	ctrl.render(w, http.StatusOK, "history.html", data)
}

func (ctrl *Controller) HistoryExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctrl.userIDFromCtx(w, r)
	if !ok {
		return
	}

	fileBytes, fileExtension, err := ctrl.brokerageService.ExportHistory(r.Context(), userID)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="history`+fileExtension+`"`)
	_, _ = w.Write(fileBytes)
}

func (ctrl *Controller) AddCashPage(w http.ResponseWriter, r *http.Request) {
	ctrl.render(w, http.StatusOK, "addcash.html", ctrl.pageData(r, "Add Cash"))
}

func (ctrl *Controller) ProcessAddCash(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctrl.userIDFromCtx(w, r)
	if !ok {
		return
	}

	amount, err := decimal.NewFromString(r.FormValue("amount"))
	if err != nil {
		ctrl.apologyForErr(w, r, service.ErrInvalidAmount)
		return
	}

	err = ctrl.brokerageService.DepositCash(r.Context(), userID, amount)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ctrl *Controller) LoginPage(w http.ResponseWriter, r *http.Request) {
	ctrl.render(w, http.StatusOK, "login.html", ctrl.pageData(r, "Log In"))
}

func (ctrl *Controller) ProcessLogin(w http.ResponseWriter, r *http.Request) {
	rqID := utils.GetRequestIDFromCtx(r.Context())

	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" {
		ctrl.apology(w, r, http.StatusBadRequest, "must provide username")
		return
	}

	if password == "" {
		ctrl.apology(w, r, http.StatusBadRequest, "must provide password")
		return
	}

	userID, err := ctrl.brokerageService.AuthenticateUser(r.Context(), username, password)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	token, err := ctrl.session.CreateSession(r.Context(), userID)
	if err != nil {
		slog.Error("got error from session.CreateSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.apology(w, r, http.StatusInternalServerError, internalErrMsg)
		return
	}

	ctrl.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ctrl *Controller) RegisterPage(w http.ResponseWriter, r *http.Request) {
	ctrl.render(w, http.StatusOK, "register.html", ctrl.pageData(r, "Register"))
}

func (ctrl *Controller) ProcessRegister(w http.ResponseWriter, r *http.Request) {
	rqID := utils.GetRequestIDFromCtx(r.Context())

	username := r.FormValue("username")
	password := r.FormValue("password")
	confirmation := r.FormValue("confirm-password")

	if username == "" {
		ctrl.apology(w, r, http.StatusBadRequest, "must provide username")
		return
	}

	if password == "" {
		ctrl.apology(w, r, http.StatusBadRequest, "must provide password")
		return
	}

	if password != confirmation {
		ctrl.apology(w, r, http.StatusBadRequest, "the passwords don't match")
		return
	}

	userID, err := ctrl.brokerageService.RegisterUser(r.Context(), username, password)
	if err != nil {
		ctrl.apologyForErr(w, r, err)
		return
	}

	token, err := ctrl.session.CreateSession(r.Context(), userID)
	if err != nil {
		slog.Error("got error from session.CreateSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.apology(w, r, http.StatusInternalServerError, internalErrMsg)
		return
	}

	ctrl.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ctrl *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		_ = ctrl.session.DeleteSession(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (ctrl *Controller) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ctrl.cfg.SessionExpiration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
