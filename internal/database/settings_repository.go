package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/brainphaser/pkg/models"
)

// settingsRow stores timeboxes as whole seconds
type settingsRow struct {
	UserID int64 `db:"user_id"`
	Stage1 int64 `db:"timebox_stage1"`
	Stage2 int64 `db:"timebox_stage2"`
	Stage3 int64 `db:"timebox_stage3"`
	Stage4 int64 `db:"timebox_stage4"`
	Stage5 int64 `db:"timebox_stage5"`
	Stage6 int64 `db:"timebox_stage6"`
}

func (r settingsRow) toModel() models.Settings {
	return models.Settings{
		UserID:        r.UserID,
		TimeboxStage1: time.Duration(r.Stage1) * time.Second,
		TimeboxStage2: time.Duration(r.Stage2) * time.Second,
		TimeboxStage3: time.Duration(r.Stage3) * time.Second,
		TimeboxStage4: time.Duration(r.Stage4) * time.Second,
		TimeboxStage5: time.Duration(r.Stage5) * time.Second,
		TimeboxStage6: time.Duration(r.Stage6) * time.Second,
	}
}

func fromModel(s models.Settings) settingsRow {
	return settingsRow{
		UserID: s.UserID,
		Stage1: int64(s.TimeboxStage1 / time.Second),
		Stage2: int64(s.TimeboxStage2 / time.Second),
		Stage3: int64(s.TimeboxStage3 / time.Second),
		Stage4: int64(s.TimeboxStage4 / time.Second),
		Stage5: int64(s.TimeboxStage5 / time.Second),
		Stage6: int64(s.TimeboxStage6 / time.Second),
	}
}

// SettingsRepository handles database operations for user settings
type SettingsRepository struct {
	db       *sqlx.DB
	defaults models.Settings
}

// NewSettingsRepository creates a new repository instance
func NewSettingsRepository(db *sqlx.DB, defaults models.Settings) *SettingsRepository {
	return &SettingsRepository{db: db, defaults: defaults}
}

// GetOrCreate returns the settings of a user. Users without settings get
// the defaults stored for them.
func (r *SettingsRepository) GetOrCreate(ctx context.Context, userID int64) (models.Settings, error) {
	var row settingsRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT user_id, timebox_stage1, timebox_stage2, timebox_stage3,
			timebox_stage4, timebox_stage5, timebox_stage6
		FROM settings
		WHERE user_id = ?
	`), userID)
	if err == nil {
		return row.toModel(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	settings := r.defaults
	settings.UserID = userID
	row = fromModel(settings)
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO settings (user_id, timebox_stage1, timebox_stage2, timebox_stage3,
			timebox_stage4, timebox_stage5, timebox_stage6)
		VALUES (:user_id, :timebox_stage1, :timebox_stage2, :timebox_stage3,
			:timebox_stage4, :timebox_stage5, :timebox_stage6)
		ON CONFLICT (user_id) DO NOTHING
	`, row)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to create settings: %w", err)
	}
	return settings, nil
}

// Update modifies the settings of a user
func (r *SettingsRepository) Update(ctx context.Context, settings models.Settings) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE settings SET
			timebox_stage1 = :timebox_stage1,
			timebox_stage2 = :timebox_stage2,
			timebox_stage3 = :timebox_stage3,
			timebox_stage4 = :timebox_stage4,
			timebox_stage5 = :timebox_stage5,
			timebox_stage6 = :timebox_stage6
		WHERE user_id = :user_id
	`, fromModel(settings))
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
