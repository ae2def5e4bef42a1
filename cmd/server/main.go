package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/taskpulse/internal/api"
	"github.com/npezzotti/taskpulse/internal/config"
	"github.com/npezzotti/taskpulse/internal/database"
	"github.com/npezzotti/taskpulse/internal/notify"
	"github.com/npezzotti/taskpulse/internal/presence"
	"github.com/npezzotti/taskpulse/internal/server"
	"github.com/npezzotti/taskpulse/internal/stats"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml, toml or json config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded into the environment if present")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "load env file:", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel())
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	repo, err := database.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.MongoDatabase)
	cancel()
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	registry := presence.NewRegistry()
	hub, err := server.NewHub(logger.Named("hub"), registry, statsUpdater, server.Options{
		Scope:        server.PresenceScope(cfg.Presence.Scope),
		PingInterval: cfg.WS.PingInterval,
		PongWait:     cfg.WS.PongWait,
	})
	if err != nil {
		logger.Fatal("new hub", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(logger.Named("dispatcher"), repo, registry, hub, statsUpdater)

	srv := api.NewApp(mux, logger.Named("api"), hub, repo, dispatcher, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go hub.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server stopped", zap.Error(err))
	}

	shutDownCtx, cancelShutdown := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancelShutdown()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}

	if err := hub.Shutdown(shutDownCtx); err != nil {
		logger.Error("hub shutdown", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
