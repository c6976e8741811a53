package spaced_repetition

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/brainphaser/pkg/models"
)

// CompletionUpdater reads and updates single completions after an answer
type CompletionUpdater interface {
	GetByUserAndChallenge(ctx context.Context, userID, challengeID int64) (*models.Completion, error)
	Create(ctx context.Context, completion *models.Completion) error
	Update(ctx context.Context, completion *models.Completion) error
}

// AnswerLogic moves a completion between stages after the user answered
type AnswerLogic struct {
	completions CompletionUpdater
	now         func() time.Time
	logger      *zap.Logger
}

// NewAnswerLogic creates a new AnswerLogic
func NewAnswerLogic(completions CompletionUpdater, logger *zap.Logger) *AnswerLogic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerLogic{
		completions: completions,
		now:         time.Now,
		logger:      logger,
	}
}

// NextStage returns the stage after an answer. A right answer moves one
// stage up, a wrong one moves one stage down, both within 1..6.
func NextStage(stage int, correct bool) (int, error) {
	if stage < models.MinStage || stage > models.MaxStage {
		return 0, fmt.Errorf("%w: cannot move from stage %d", ErrInvalidStage, stage)
	}
	if correct {
		if stage < models.MaxStage {
			stage++
		}
		return stage, nil
	}
	if stage > models.MinStage {
		stage--
	}
	return stage, nil
}

// RecordAnswer updates the completion of a challenge and returns it.
// A completion that does not exist yet is created at stage 1 first.
func (a *AnswerLogic) RecordAnswer(ctx context.Context, userID, challengeID int64, correct bool) (*models.Completion, error) {
	now := a.now()

	completion, err := a.completions.GetByUserAndChallenge(ctx, userID, challengeID)
	if err != nil {
		return nil, storeError("get completion", err)
	}
	if completion == nil {
		completion = &models.Completion{
			UserID:        userID,
			ChallengeID:   challengeID,
			Stage:         models.MinStage,
			LastCompleted: now,
		}
		if err := a.completions.Create(ctx, completion); err != nil {
			return nil, storeError("create completion", err)
		}
	}

	stage, err := NextStage(completion.Stage, correct)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Recording answer",
		zap.Int64("user_id", userID),
		zap.Int64("challenge_id", challengeID),
		zap.Bool("correct", correct),
		zap.Int("from_stage", completion.Stage),
		zap.Int("to_stage", stage))

	completion.Stage = stage
	completion.LastCompleted = now
	if err := a.completions.Update(ctx, completion); err != nil {
		return nil, storeError("update completion", err)
	}
	return completion, nil
}
