package models

import "time"

// Settings holds the per-user re-practice intervals, one per stage
type Settings struct {
	UserID        int64         `json:"user_id"`
	TimeboxStage1 time.Duration `json:"timebox_stage1"`
	TimeboxStage2 time.Duration `json:"timebox_stage2"`
	TimeboxStage3 time.Duration `json:"timebox_stage3"`
	TimeboxStage4 time.Duration `json:"timebox_stage4"`
	TimeboxStage5 time.Duration `json:"timebox_stage5"`
	TimeboxStage6 time.Duration `json:"timebox_stage6"`
}
