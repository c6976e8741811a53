package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/brainphaser/internal/database"
	"github.com/example/brainphaser/internal/spaced_repetition"
	"github.com/example/brainphaser/pkg/models"
)

// Notifier sends reminders about due challenges
type Notifier interface {
	SendReminder(ctx context.Context, user models.User, dueCount int) error
}

// Options configures the reminder job
type Options struct {
	Interval  time.Duration
	StartHour int
	EndHour   int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *database.Store
	notifier  Notifier
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(store *database.Store, notifier Notifier, opts Options, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		notifier:  notifier,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.opts.Interval).WaitForSchedule().Do(func() {
		s.checkAndSendReminders(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("Reminder scheduler started", zap.Duration("interval", s.opts.Interval))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("Reminder scheduler stopped")
}

// checkAndSendReminders notifies every user whose reminder hour is now
func (s *Scheduler) checkAndSendReminders(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	currentHour := s.now().UTC().Hour()
	if currentHour < s.opts.StartHour || currentHour > s.opts.EndHour {
		s.logger.Debug("Outside notification hours, skipping reminders",
			zap.Int("hour", currentHour),
			zap.Int("start_hour", s.opts.StartHour),
			zap.Int("end_hour", s.opts.EndHour))
		return
	}

	users, err := s.store.Users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		s.logger.Error("Failed to get users for notification", zap.Error(err))
		return
	}

	for _, user := range users {
		if err := s.RunManualCheck(ctx, user); err != nil {
			s.logger.Error("Failed to check due challenges",
				zap.Int64("user_id", user.ID),
				zap.Error(err))
		}
	}
}

// RunManualCheck counts the due challenges of one user and sends a reminder
// if there are any
func (s *Scheduler) RunManualCheck(ctx context.Context, user models.User) error {
	settings, err := s.store.Settings.GetOrCreate(ctx, user.ID)
	if err != nil {
		return err
	}

	logic := spaced_repetition.NewDueChallengeLogic(user, settings, s.store.Completions, s.store.Challenges,
		spaced_repetition.WithClock(s.now),
		spaced_repetition.WithLogger(s.logger))

	due, err := logic.GetDueChallenges(ctx, spaced_repetition.AllCategories())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Info("Sending reminder", zap.Int64("user_id", user.ID), zap.Int("due", len(due)))
	return s.notifier.SendReminder(ctx, user, len(due))
}
