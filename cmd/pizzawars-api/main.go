package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pizzawars/internal/api"
	"pizzawars/internal/config"
	"pizzawars/internal/game"
	"pizzawars/internal/notify"
	"pizzawars/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	balance, err := config.LoadBalance(cfg.BalanceFile)
	if err != nil {
		logger.Error("balance load failed", "err", err)
		os.Exit(1)
	}

	st, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logger.Error("store open failed", "kind", cfg.Store.Kind, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	var notifier game.Notifier = notify.NewLog(logger)
	if cfg.DiscordBotToken != "" {
		discord, err := notify.NewDiscord(cfg.DiscordBotToken, logger)
		if err != nil {
			logger.Error("discord init failed", "err", err)
			os.Exit(1)
		}
		defer discord.Close()
		notifier = notify.Multi{notifier, discord}
	}

	gameSvc := game.NewService(st, logger,
		game.WithBalance(balance),
		game.WithNotifier(notifier),
		game.WithStoreTimeout(cfg.Store.Timeout),
	)
	if err := gameSvc.ReloadPerformance(ctx); err != nil {
		logger.Warn("performance snapshot unavailable, using neutral multipliers", "err", err)
	}
	go reloadPerformance(ctx, logger, gameSvc, cfg.PerformanceReloadEvery)

	server := api.New(cfg, logger, gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("pizzawars api listening", "addr", cfg.Addr, "store", cfg.Store.Kind)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// reloadPerformance picks up multipliers rolled by the worker.
func reloadPerformance(ctx context.Context, logger *slog.Logger, svc *game.Service, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.ReloadPerformance(ctx); err != nil {
				logger.Error("performance reload failed", "err", err)
			}
		}
	}
}
