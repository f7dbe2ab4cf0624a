package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/avery/hireflow/internal/mailer"
	"github.com/avery/hireflow/internal/tasks"
	"github.com/avery/hireflow/pkg/config"
	"github.com/avery/hireflow/pkg/queue"
	"github.com/avery/hireflow/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting hireflow worker")

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Emails go out over SMTP when configured, otherwise to the log.
	mail := mailer.FromConfig(&cfg.SMTP, logger)
	handler := tasks.NewHandler(logger, mail)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	logger.Info("worker stopped")
}
