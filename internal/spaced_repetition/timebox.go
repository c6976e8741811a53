package spaced_repetition

import (
	"fmt"
	"time"

	"github.com/example/brainphaser/pkg/models"
)

// TimeboxForStage returns the minimum time that has to pass after the last
// completion before a challenge in the given stage is due again.
func TimeboxForStage(settings models.Settings, stage int) (time.Duration, error) {
	switch stage {
	case 1:
		return settings.TimeboxStage1, nil
	case 2:
		return settings.TimeboxStage2, nil
	case 3:
		return settings.TimeboxStage3, nil
	case 4:
		return settings.TimeboxStage4, nil
	case 5:
		return settings.TimeboxStage5, nil
	case 6:
		return settings.TimeboxStage6, nil
	default:
		return 0, fmt.Errorf("%w: attempting to get timebox of stage %d", ErrInvalidStage, stage)
	}
}
