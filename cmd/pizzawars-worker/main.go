package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pizzawars/internal/config"
	"pizzawars/internal/game"
	"pizzawars/internal/notify"
	"pizzawars/internal/store"
	"pizzawars/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
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
		notifier = discord
	}

	svc := game.NewService(st, logger,
		game.WithBalance(balance),
		game.WithNotifier(notifier),
		game.WithStoreTimeout(cfg.Store.Timeout),
	)

	w, err := worker.New(cfg, logger, svc)
	if err != nil {
		logger.Error("worker init failed", "err", err)
		os.Exit(1)
	}

	if cfg.RunOnce {
		if err := w.RunOnce(ctx); err != nil {
			logger.Error("worker run-once failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}
	w.Run(ctx)
}
