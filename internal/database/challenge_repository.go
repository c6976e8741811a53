package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/brainphaser/pkg/models"
)

// ChallengeRepository handles database operations for challenges
type ChallengeRepository struct {
	db *sqlx.DB
}

// NewChallengeRepository creates a new repository instance
func NewChallengeRepository(db *sqlx.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create inserts a new challenge and fills its ID
func (r *ChallengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	challenge.Question = strings.TrimSpace(challenge.Question)
	challenge.Answer = strings.TrimSpace(challenge.Answer)
	if challenge.Question == "" || challenge.Answer == "" {
		return errors.New("challenge question and answer are required")
	}

	var id int64
	err := r.db.QueryRowxContext(ctx,
		r.db.Rebind("INSERT INTO challenges (category_id, question, answer) VALUES (?, ?, ?) RETURNING id"),
		challenge.CategoryID, challenge.Question, challenge.Answer,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	challenge.ID = id
	return nil
}

// GetByID returns a challenge by ID
func (r *ChallengeRepository) GetByID(ctx context.Context, id int64) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.GetContext(ctx, &challenge,
		r.db.Rebind("SELECT id, category_id, question, answer, created_at FROM challenges WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge by ID: %w", err)
	}
	return &challenge, nil
}

// GetByCategory returns all challenges of a category
func (r *ChallengeRepository) GetByCategory(ctx context.Context, categoryID int64) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.SelectContext(ctx, &challenges,
		r.db.Rebind("SELECT id, category_id, question, answer, created_at FROM challenges WHERE category_id = ? ORDER BY id"),
		categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenges by category: %w", err)
	}
	return challenges, nil
}

// ExistsInCategory reports whether a question is already present in a category
func (r *ChallengeRepository) ExistsInCategory(ctx context.Context, categoryID int64, question string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		r.db.Rebind("SELECT COUNT(*) FROM challenges WHERE category_id = ? AND LOWER(question) = ?"),
		categoryID, strings.ToLower(strings.TrimSpace(question)))
	if err != nil {
		return false, fmt.Errorf("failed to check challenge: %w", err)
	}
	return n > 0, nil
}

// GetChallengesWithoutCompletion returns the challenges the user has no
// completion for yet
func (r *ChallengeRepository) GetChallengesWithoutCompletion(ctx context.Context, userID int64) ([]models.Challenge, error) {
	var challenges []models.Challenge
	query := r.db.Rebind(`
		SELECT ch.id, ch.category_id, ch.question, ch.answer, ch.created_at
		FROM challenges ch
		LEFT JOIN completions co ON co.challenge_id = ch.id AND co.user_id = ?
		WHERE co.id IS NULL
		ORDER BY ch.id
	`)
	if err := r.db.SelectContext(ctx, &challenges, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get uncompleted challenges: %w", err)
	}
	return challenges, nil
}
