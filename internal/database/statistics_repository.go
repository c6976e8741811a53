package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/brainphaser/pkg/models"
)

// StatisticsRepository answers aggregate questions about a user's progress
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// StageDistribution maps each stage 1..6 to the number of completions in it
type StageDistribution map[int]int

// Total returns the number of tracked challenges
func (d StageDistribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// GetStageDistribution counts the completions of a user per stage. Every
// stage is present in the result, empty ones with zero.
func (r *StatisticsRepository) GetStageDistribution(ctx context.Context, userID int64) (StageDistribution, error) {
	var rows []struct {
		Stage int `db:"stage"`
		Count int `db:"count"`
	}
	query := r.db.Rebind(`
		SELECT stage, COUNT(*) AS count
		FROM completions
		WHERE user_id = ?
		GROUP BY stage
	`)
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get stage distribution: %w", err)
	}

	dist := make(StageDistribution, models.MaxStage)
	for stage := models.MinStage; stage <= models.MaxStage; stage++ {
		dist[stage] = 0
	}
	for _, row := range rows {
		dist[row.Stage] = row.Count
	}
	return dist, nil
}
