package web

import (
	"github.com/KotFed0t/stock_trading_sim/internal/transport/web/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(ctrl *Controller, session middleware.SessionStore) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.NoCache)

	r.Group(func(r chi.Router) {
		r.Get("/login", ctrl.LoginPage)
		r.Post("/login", ctrl.ProcessLogin)
		r.Get("/register", ctrl.RegisterPage)
		r.Post("/register", ctrl.ProcessRegister)
		r.Get("/logout", ctrl.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(session))

		r.Get("/", ctrl.Index)
		r.Get("/buy", ctrl.BuyPage)
		r.Post("/buy", ctrl.ProcessBuy)
		r.Get("/sell", ctrl.SellPage)
		r.Post("/sell", ctrl.ProcessSell)
		r.Get("/quote", ctrl.QuotePage)
		r.Post("/quote", ctrl.ProcessQuote)
		r.Get("/history", ctrl.History)
		r.Get("/history/export", ctrl.HistoryExport)
		r.Get("/addcash", ctrl.AddCashPage)
		r.Post("/addcash", ctrl.ProcessAddCash)
	})

	return r
}
