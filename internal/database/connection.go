package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/brainphaser/pkg/models"
)

// Supported driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Open establishes a connection to the database and creates the schema
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates necessary tables if they don't exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + id + `,
			telegram_id BIGINT UNIQUE NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			notification_hour INTEGER NOT NULL DEFAULT 9,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			timebox_stage1 BIGINT NOT NULL,
			timebox_stage2 BIGINT NOT NULL,
			timebox_stage3 BIGINT NOT NULL,
			timebox_stage4 BIGINT NOT NULL,
			timebox_stage5 BIGINT NOT NULL,
			timebox_stage6 BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id ` + id + `,
			title TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS challenges (
			id ` + id + `,
			category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(category_id, question)
		)`,
		// UNIQUE(user_id, challenge_id) keeps concurrent materialization from
		// creating two completions for the same challenge.
		`CREATE TABLE IF NOT EXISTS completions (
			id ` + id + `,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
			stage INTEGER NOT NULL CHECK (stage BETWEEN 1 AND 6),
			last_completed TIMESTAMP NOT NULL,
			UNIQUE(user_id, challenge_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_user_stage ON completions(user_id, stage)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// Store bundles all repositories sharing one connection
type Store struct {
	DB          *sqlx.DB
	Users       *UserRepository
	Settings    *SettingsRepository
	Categories  *CategoryRepository
	Challenges  *ChallengeRepository
	Completions *CompletionRepository
	Statistics  *StatisticsRepository
}

// NewStore creates the repositories over db. defaults is used for users
// that do not have settings yet.
func NewStore(db *sqlx.DB, defaults models.Settings) *Store {
	return &Store{
		DB:          db,
		Users:       NewUserRepository(db),
		Settings:    NewSettingsRepository(db, defaults),
		Categories:  NewCategoryRepository(db),
		Challenges:  NewChallengeRepository(db),
		Completions: NewCompletionRepository(db),
		Statistics:  NewStatisticsRepository(db),
	}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
