package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"face-score/internal/app"
	"face-score/internal/config"
	"face-score/internal/logger"
)

func main() {
	modeFlag := flag.String("mode", "all", "what to run: api, worker or all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", map[string]any{"error": err})
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		logger.Fatal("failed to init logger", map[string]any{"error": err})
	}

	mode, err := app.ParseMode(*modeFlag)
	if err != nil {
		logger.Fatal("invalid mode", map[string]any{"error": err})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg, mode)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err,
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("server failed", map[string]any{
				"error": err,
			})
		}
	}()

	logger.Info("face-score started", map[string]any{
		"port": cfg.AppPort,
		"mode": mode,
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err,
		})
	}

	logger.Info("face-score stopped cleanly", nil)
}
