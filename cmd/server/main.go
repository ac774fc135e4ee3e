package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quchat/quchat/internal/config"
	"github.com/quchat/quchat/internal/server"
	"github.com/quchat/quchat/internal/storage/sqlite"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		log.Error("init storage", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	app := server.New(cfg, store, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Error("server shutdown", "err", err)
		os.Exit(1)
	}
}
