package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"autotrader/config"
	"autotrader/internal/trader"
	"autotrader/internal/trader/feed"
	"autotrader/internal/trader/history"
	"autotrader/logger"
	"autotrader/pkg/market"
	"autotrader/pkg/storage/postgres"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable store: postgres, or the in-memory store for dry runs
	var store history.Store
	if cfg.Postgres.Enabled {
		client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			log.Fatal("failed to initialize postgres", zap.Error(err))
		}
		defer client.Close()
		store = client
	} else {
		log.Warn("postgres disabled, history is in-memory only")
		store = history.NewMemoryStore()
	}

	// Market client with its rate tracker
	tracker := market.NewRateTracker()
	client := market.NewClient(cfg.Market.BaseURL, cfg.Market.AuthToken, cfg.Market.Timeout, tracker)

	t, err := trader.New(cfg.Trading, client, store, log)
	if err != nil {
		log.Fatal("failed to build trader", zap.Error(err))
	}

	// Optional streaming ticker feed warming the price cache
	if cfg.Market.WSURL != "" {
		wsClient := market.NewWSClient(cfg.Market.WSURL, log)
		wsClient.SetMessageHandler(feed.MakeMessageHandler(log, t.Cache()))
		if err := wsClient.Connect(); err != nil {
			log.Warn("ticker feed unavailable", zap.Error(err))
		} else {
			go wsClient.Listen()
		}
	}

	// Prometheus metrics endpoint
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if err := t.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("trader stopped", zap.Error(err))
	}
	log.Info("shutdown complete")
}
