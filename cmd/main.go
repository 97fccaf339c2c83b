package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KotFed0t/stock_trading_sim/config"
	"github.com/KotFed0t/stock_trading_sim/data"
	"github.com/KotFed0t/stock_trading_sim/data/cache"
	"github.com/KotFed0t/stock_trading_sim/data/repository/postgres"
	"github.com/KotFed0t/stock_trading_sim/data/session"
	"github.com/KotFed0t/stock_trading_sim/internal/externalApi/quoteApi"
	"github.com/KotFed0t/stock_trading_sim/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/stock_trading_sim/internal/scheduler"
	"github.com/KotFed0t/stock_trading_sim/internal/service/brokerageService"
	"github.com/KotFed0t/stock_trading_sim/internal/transport/web"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	quoteApiClient := quoteApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	brokerageSrv := brokerageService.New(cfg, pgRepo, redisCache, quoteApiClient, reportGenerator)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh quotes cache", brokerageSrv.RefreshQuoteCache, cfg.Jobs.RefreshQuotesInterval, true)
	sched.Start()
	defer sched.Stop()

	webController := web.NewController(cfg, brokerageSrv, redisSession)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      web.NewRouter(webController, redisSession),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("starting http server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
