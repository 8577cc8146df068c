package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"kinkeeper/app"
	"kinkeeper/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", "err", err)
	}

	logger := setupLogger(cfg)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize data layer", "err", err)
	}
	defer a.Close()

	// The mobile shell normally drives sign-in; running standalone, the
	// session user comes from the environment.
	userID := config.GetEnv("USER_ID", "")
	if userID == "" {
		logger.Fatal("USER_ID is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.ActivateSync(ctx, userID); err != nil {
		logger.Fatal("failed to activate sync", "err", err)
	}

	logger.Info("data layer running", "user", userID)
	<-ctx.Done()
	logger.Info("shutting down")
}

func setupLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if cfg.Env == "development" {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
