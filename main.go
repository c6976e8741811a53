package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/brainphaser/internal/bot"
	"github.com/example/brainphaser/internal/config"
	"github.com/example/brainphaser/internal/database"
	"github.com/example/brainphaser/internal/excel"
	"github.com/example/brainphaser/internal/logger"
	"github.com/example/brainphaser/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	log := logger.New(cfg.LogLevel, cfg.LogPath)
	defer func() { _ = log.Sync() }()

	// Cancelled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, dsn := cfg.Driver()
	db, err := database.Open(ctx, driver, dsn)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.String("driver", driver), zap.Error(err))
	}
	store := database.NewStore(db, cfg.DefaultSettings())
	defer store.Close()

	importer := excel.NewImporter(store, log)

	b, err := bot.New(cfg, store, importer, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	if cfg.SchedulerEnabled {
		s := scheduler.New(store, b, scheduler.Options{
			Interval:  cfg.ReminderInterval,
			StartHour: cfg.NotificationStartHour,
			EndHour:   cfg.NotificationEndHour,
		}, log)
		if err := s.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer s.Stop()
	}

	log.Info("Bot started. Press Ctrl+C to stop.")
	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Bot error", zap.Error(err))
	}

	b.Stop()
	log.Info("Bot stopped successfully")
}
