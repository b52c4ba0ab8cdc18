package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lv-marginfx/internal/config"
	"lv-marginfx/internal/db"
	"lv-marginfx/internal/events"
	"lv-marginfx/internal/httpserver"
	"lv-marginfx/internal/ledger"
	"lv-marginfx/internal/marketdata"
	"lv-marginfx/internal/trading"
	"lv-marginfx/internal/wallets"

	"github.com/redis/go-redis/v9"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Error("postgres connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis connect", "err", err)
		os.Exit(1)
	}

	bus := events.NewBus()
	pub := events.NewFanoutPublisher(events.NewRedisPublisher(rdb), bus)
	store := ledger.NewPGStore(pool)
	market := marketdata.NewRedisSource(rdb, cfg.TickMaxAge)
	tradingSvc := trading.NewService(store, market, pub, log)
	walletSvc := wallets.NewService(store, cfg.DemoDeposit, log)

	verifier := httpserver.NewTokenVerifier(cfg.JWTIssuer, cfg.JWTSecret)
	handler := httpserver.NewHandler(tradingSvc, walletSvc, cfg.Production(), log)
	wsHandler := httpserver.NewWSHandler(bus, verifier, cfg.WebSocketOrigin)
	router := httpserver.NewRouter(httpserver.RouterDeps{
		Handler:   handler,
		Verifier:  verifier,
		WSHandler: wsHandler,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Info("server listening", "addr", cfg.HTTPAddr, "mode", cfg.AppMode)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}
