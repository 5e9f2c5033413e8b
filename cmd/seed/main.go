package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/plant-care-assistant/internal/bootstrap"
	"github.com/kirillkom/plant-care-assistant/internal/config"
	"github.com/kirillkom/plant-care-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("seed", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "seed")
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	seeder, err := app.Seeder()
	if err != nil {
		slog.Error("seed_init_failed", "error", err)
		os.Exit(1)
	}

	seedCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	report, err := seeder.SeedAll(seedCtx)
	if err != nil {
		slog.Error("seed_failed", "path", cfg.KnowledgePath, "error", err)
		os.Exit(1)
	}
	slog.Info("seed_completed",
		"path", cfg.KnowledgePath,
		"sources", report.Sources,
		"indexed", report.Indexed,
		"chunks", report.Chunks,
		"failures", len(report.Failures),
	)
	if report.Indexed == 0 && report.Sources > 0 {
		os.Exit(2)
	}
}
