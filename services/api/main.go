package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/02loveslollipop/rtwqms-watcher/internal/logging"
	"github.com/02loveslollipop/rtwqms-watcher/services/api/config"
	"github.com/02loveslollipop/rtwqms-watcher/services/api/exports"
	httpserver "github.com/02loveslollipop/rtwqms-watcher/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		slog.Error("logger error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := exports.New(cfg.ExportDir)
	if err != nil {
		logger.Error("export store error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := httpserver.New(cfg, store, logger)
	logger.Info("exports API listening",
		slog.String("addr", cfg.ListenAddr()),
		slog.String("export_dir", store.Dir()))

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
