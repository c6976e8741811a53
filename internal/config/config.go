package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/brainphaser/pkg/models"
)

// Defaults for the reminder window
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// DefaultTimeboxes are the re-practice intervals of stages 1..6
var DefaultTimeboxes = [6]time.Duration{
	time.Hour,
	24 * time.Hour,
	3 * 24 * time.Hour,
	7 * 24 * time.Hour,
	14 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

// Config represents the configuration of the application
type Config struct {
	BotToken     string
	AdminUserIDs []int64

	// DBType is either "sqlite" or "postgres"
	DBType      string
	DBPath      string
	DatabaseURL string

	SchedulerEnabled      bool
	ReminderInterval      time.Duration
	NotificationStartHour int
	NotificationEndHour   int

	Timeboxes [6]time.Duration

	LogLevel string
	LogPath  string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		BotToken:              os.Getenv("TELEGRAM_BOT_TOKEN"),
		DBType:                getEnv("DB_TYPE", "sqlite"),
		DBPath:                getEnv("DB_PATH", "data/brainphaser.db"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SchedulerEnabled:      os.Getenv("ENABLE_SCHEDULER") != "false",
		ReminderInterval:      time.Hour,
		NotificationStartHour: DefaultNotificationStartHour,
		NotificationEndHour:   DefaultNotificationEndHour,
		Timeboxes:             DefaultTimeboxes,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogPath:               getEnv("LOG_PATH", "logs/brainphaser.log"),
	}

	var err error
	if cfg.AdminUserIDs, err = parseIDs(os.Getenv("ADMIN_USER_IDS")); err != nil {
		return nil, err
	}
	if cfg.ReminderInterval, err = getDuration("REMINDER_INTERVAL", cfg.ReminderInterval); err != nil {
		return nil, err
	}
	if cfg.NotificationStartHour, err = getInt("NOTIFICATION_START_HOUR", cfg.NotificationStartHour); err != nil {
		return nil, err
	}
	if cfg.NotificationEndHour, err = getInt("NOTIFICATION_END_HOUR", cfg.NotificationEndHour); err != nil {
		return nil, err
	}
	for i := range cfg.Timeboxes {
		key := fmt.Sprintf("TIMEBOX_STAGE%d", i+1)
		if cfg.Timeboxes[i], err = getDuration(key, cfg.Timeboxes[i]); err != nil {
			return nil, err
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	switch c.DBType {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.DBType)
	}
	if c.NotificationStartHour < 0 || c.NotificationStartHour > 23 {
		return fmt.Errorf("NOTIFICATION_START_HOUR %d out of range", c.NotificationStartHour)
	}
	if c.NotificationEndHour < 0 || c.NotificationEndHour > 23 {
		return fmt.Errorf("NOTIFICATION_END_HOUR %d out of range", c.NotificationEndHour)
	}
	if c.NotificationStartHour > c.NotificationEndHour {
		return errors.New("NOTIFICATION_START_HOUR must not be after NOTIFICATION_END_HOUR")
	}
	if c.SchedulerEnabled && c.ReminderInterval <= 0 {
		return errors.New("REMINDER_INTERVAL must be positive")
	}
	for i, tb := range c.Timeboxes {
		if tb <= 0 {
			return fmt.Errorf("TIMEBOX_STAGE%d must be positive", i+1)
		}
	}
	return nil
}

// Driver returns the database/sql driver name and DSN
func (c *Config) Driver() (driver, dsn string) {
	if c.DBType == "postgres" {
		return "postgres", c.DatabaseURL
	}
	return "sqlite3", c.DBPath
}

// IsAdmin reports whether the Telegram user may import challenges
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// DefaultSettings returns the settings given to new users
func (c *Config) DefaultSettings() models.Settings {
	return models.Settings{
		TimeboxStage1: c.Timeboxes[0],
		TimeboxStage2: c.Timeboxes[1],
		TimeboxStage3: c.Timeboxes[2],
		TimeboxStage4: c.Timeboxes[3],
		TimeboxStage5: c.Timeboxes[4],
		TimeboxStage6: c.Timeboxes[5],
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin user ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
