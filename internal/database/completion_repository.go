package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/brainphaser/pkg/models"
)

const completionColumns = "co.id, co.user_id, co.challenge_id, co.stage, co.last_completed, ch.category_id"

// CompletionRepository handles database operations for completions
type CompletionRepository struct {
	db *sqlx.DB
}

// NewCompletionRepository creates a new repository instance
func NewCompletionRepository(db *sqlx.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// FindByUserAndStage returns all completions of a user in a stage together
// with the category of their challenge
func (r *CompletionRepository) FindByUserAndStage(ctx context.Context, userID int64, stage int) ([]models.Completion, error) {
	var completions []models.Completion
	query := r.db.Rebind(`
		SELECT ` + completionColumns + `
		FROM completions co
		JOIN challenges ch ON ch.id = co.challenge_id
		WHERE co.user_id = ? AND co.stage = ?
		ORDER BY co.id
	`)
	if err := r.db.SelectContext(ctx, &completions, query, userID, stage); err != nil {
		return nil, fmt.Errorf("failed to get completions by stage: %w", err)
	}
	return completions, nil
}

// GetByUserAndChallenge returns the completion of a challenge for a user,
// or nil if there is none
func (r *CompletionRepository) GetByUserAndChallenge(ctx context.Context, userID, challengeID int64) (*models.Completion, error) {
	var completion models.Completion
	query := r.db.Rebind(`
		SELECT ` + completionColumns + `
		FROM completions co
		JOIN challenges ch ON ch.id = co.challenge_id
		WHERE co.user_id = ? AND co.challenge_id = ?
	`)
	err := r.db.GetContext(ctx, &completion, query, userID, challengeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}
	return &completion, nil
}

// Create inserts a completion. If the user already has a completion for the
// challenge, nothing is inserted and completion is overwritten with the
// stored record, so concurrent creators all end up with the same row.
func (r *CompletionRepository) Create(ctx context.Context, completion *models.Completion) error {
	if completion.Stage < models.MinStage || completion.Stage > models.MaxStage {
		return fmt.Errorf("failed to create completion: stage %d out of range", completion.Stage)
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO completions (user_id, challenge_id, stage, last_completed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, challenge_id) DO NOTHING
	`), completion.UserID, completion.ChallengeID, completion.Stage, completion.LastCompleted.UTC())
	if err != nil {
		return fmt.Errorf("failed to create completion: %w", err)
	}

	stored, err := r.GetByUserAndChallenge(ctx, completion.UserID, completion.ChallengeID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("failed to create completion: row for challenge %d vanished", completion.ChallengeID)
	}
	*completion = *stored
	return nil
}

// Update stores the stage and last completion time of a completion
func (r *CompletionRepository) Update(ctx context.Context, completion *models.Completion) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE completions SET stage = ?, last_completed = ?
		WHERE user_id = ? AND challenge_id = ?
	`), completion.Stage, completion.LastCompleted.UTC(), completion.UserID, completion.ChallengeID)
	if err != nil {
		return fmt.Errorf("failed to update completion: %w", err)
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
