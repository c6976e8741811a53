package models

import "time"

// Stage bounds for a completion
const (
	MinStage = 1
	MaxStage = 6
)

// Completion tracks a user's stage and last practice time for one challenge.
// ID is zero until the record has been persisted.
type Completion struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	ChallengeID   int64     `json:"challenge_id" db:"challenge_id"`
	Stage         int       `json:"stage" db:"stage"`
	LastCompleted time.Time `json:"last_completed" db:"last_completed"`
	CategoryID    int64     `json:"category_id" db:"category_id"` // Category of the challenge, read via join
}
