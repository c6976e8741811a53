package spaced_repetition

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/brainphaser/pkg/models"
)

// CompletionStore persists one completion per (user, challenge)
type CompletionStore interface {
	FindByUserAndStage(ctx context.Context, userID int64, stage int) ([]models.Completion, error)
	// Create must collapse a concurrent duplicate for the same (user, challenge)
	// into the surviving record instead of inserting a second one.
	Create(ctx context.Context, completion *models.Completion) error
}

// ChallengeStore gives access to challenge definitions
type ChallengeStore interface {
	GetChallengesWithoutCompletion(ctx context.Context, userID int64) ([]models.Challenge, error)
}

// DueChallengeLogic decides which challenges a user has to practice now
type DueChallengeLogic struct {
	user        models.User
	settings    models.Settings
	completions CompletionStore
	challenges  ChallengeStore
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a DueChallengeLogic
type Option func(*DueChallengeLogic)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *DueChallengeLogic) {
		l.now = now
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(l *DueChallengeLogic) {
		l.logger = logger
	}
}

// NewDueChallengeLogic creates the due logic for one user
func NewDueChallengeLogic(user models.User, settings models.Settings, completions CompletionStore, challenges ChallengeStore, opts ...Option) *DueChallengeLogic {
	l := &DueChallengeLogic{
		user:        user,
		settings:    settings,
		completions: completions,
		challenges:  challenges,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CountDueByCategory returns the number of due challenges for each category id
func (l *DueChallengeLogic) CountDueByCategory(ctx context.Context, categories []models.Category) (map[int64]int, error) {
	counts := make(map[int64]int, len(categories))
	for _, category := range categories {
		due, err := l.GetDueChallenges(ctx, InCategory(category.ID))
		if err != nil {
			return nil, err
		}
		counts[category.ID] = len(due)
	}
	return counts, nil
}

// GetDueChallenges returns the ids of all due challenges matching the filter.
// Challenges without a completion are returned as well, and a stage 1
// completion is created for each of them.
func (l *DueChallengeLogic) GetDueChallenges(ctx context.Context, filter CategoryFilter) ([]int64, error) {
	now := l.now()
	due := &dueSet{seen: make(map[int64]struct{})}

	if err := l.addDueCompletions(ctx, now, filter, due); err != nil {
		return nil, err
	}
	if err := l.createMissingCompletions(ctx, now, filter, due); err != nil {
		return nil, err
	}

	l.logger.Debug("Computed due challenges",
		zap.Int64("user_id", l.user.ID),
		zap.Stringer("category", filter),
		zap.Int("count", len(due.ids)))

	return due.ids, nil
}

// addDueCompletions scans the existing completions stage by stage
func (l *DueChallengeLogic) addDueCompletions(ctx context.Context, now time.Time, filter CategoryFilter, due *dueSet) error {
	for stage := models.MinStage; stage <= models.MaxStage; stage++ {
		timebox, err := TimeboxForStage(l.settings, stage)
		if err != nil {
			return err
		}

		completed, err := l.completions.FindByUserAndStage(ctx, l.user.ID, stage)
		if err != nil {
			return storeError("find completions by stage", err)
		}

		for _, c := range completed {
			if now.Sub(c.LastCompleted) < timebox {
				continue
			}
			if filter.Matches(c.CategoryID) {
				due.add(c.ChallengeID)
			}
		}
	}
	return nil
}

// createMissingCompletions creates the completions a user does not have yet.
// lastCompleted is backdated by exactly the stage 1 timebox so the new
// record is due now under the same rule used for existing ones.
func (l *DueChallengeLogic) createMissingCompletions(ctx context.Context, now time.Time, filter CategoryFilter, due *dueSet) error {
	timebox, err := TimeboxForStage(l.settings, models.MinStage)
	if err != nil {
		return err
	}

	notCompletedYet, err := l.challenges.GetChallengesWithoutCompletion(ctx, l.user.ID)
	if err != nil {
		return storeError("get challenges without completion", err)
	}

	dueSince := now.Add(-timebox)
	for _, challenge := range notCompletedYet {
		if !filter.Matches(challenge.CategoryID) {
			continue
		}

		completion := &models.Completion{
			UserID:        l.user.ID,
			ChallengeID:   challenge.ID,
			Stage:         models.MinStage,
			LastCompleted: dueSince,
			CategoryID:    challenge.CategoryID,
		}
		if err := l.completions.Create(ctx, completion); err != nil {
			return storeError("create completion", err)
		}
		due.add(challenge.ID)
	}
	return nil
}

type dueSet struct {
	ids  []int64
	seen map[int64]struct{}
}

func (s *dueSet) add(id int64) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}
