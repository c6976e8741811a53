package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		BotToken:              "test-token",
		DBType:                "sqlite",
		DBPath:                "data/test.db",
		SchedulerEnabled:      true,
		ReminderInterval:      time.Hour,
		NotificationStartHour: 8,
		NotificationEndHour:   22,
		Timeboxes:             DefaultTimeboxes,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing bot token", mutate: func(c *Config) { c.BotToken = "" }, wantErr: true},
		{name: "unknown db type", mutate: func(c *Config) { c.DBType = "mysql" }, wantErr: true},
		{name: "postgres without url", mutate: func(c *Config) { c.DBType = "postgres" }, wantErr: true},
		{name: "postgres with url", mutate: func(c *Config) {
			c.DBType = "postgres"
			c.DatabaseURL = "postgres://localhost/brainphaser"
		}},
		{name: "start hour out of range", mutate: func(c *Config) { c.NotificationStartHour = 24 }, wantErr: true},
		{name: "start after end", mutate: func(c *Config) { c.NotificationStartHour, c.NotificationEndHour = 20, 10 }, wantErr: true},
		{name: "zero reminder interval", mutate: func(c *Config) { c.ReminderInterval = 0 }, wantErr: true},
		{name: "zero interval with scheduler off", mutate: func(c *Config) {
			c.ReminderInterval = 0
			c.SchedulerEnabled = false
		}},
		{name: "non-positive timebox", mutate: func(c *Config) { c.Timeboxes[4] = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "abc")
	t.Setenv("ADMIN_USER_IDS", "12, 34")
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("TIMEBOX_STAGE1", "30m")
	t.Setenv("TIMEBOX_STAGE6", "2160h")
	t.Setenv("NOTIFICATION_START_HOUR", "6")
	t.Setenv("ENABLE_SCHEDULER", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.BotToken)
	assert.Equal(t, []int64{12, 34}, cfg.AdminUserIDs)
	assert.True(t, cfg.IsAdmin(34))
	assert.False(t, cfg.IsAdmin(56))
	assert.False(t, cfg.SchedulerEnabled)
	assert.Equal(t, 6, cfg.NotificationStartHour)

	driver, dsn := cfg.Driver()
	assert.Equal(t, "sqlite3", driver)
	assert.Equal(t, "/tmp/x.db", dsn)

	settings := cfg.DefaultSettings()
	assert.Equal(t, 30*time.Minute, settings.TimeboxStage1)
	assert.Equal(t, DefaultTimeboxes[1], settings.TimeboxStage2)
	assert.Equal(t, 2160*time.Hour, settings.TimeboxStage6)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "abc")

	t.Setenv("TIMEBOX_STAGE2", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TIMEBOX_STAGE2", "")
	t.Setenv("ADMIN_USER_IDS", "1,x")
	_, err = Load()
	assert.Error(t, err)
}
