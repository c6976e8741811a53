package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/brainphaser/internal/database"
	"github.com/example/brainphaser/internal/spaced_repetition"
	"github.com/example/brainphaser/pkg/models"
)

func TestParseCallback(t *testing.T) {
	cb, err := parseCallback(practiceData(spaced_repetition.AllCategories()))
	require.NoError(t, err)
	assert.Equal(t, callbackPractice, cb.action)
	assert.True(t, cb.filter.IsAll())

	cb, err = parseCallback(practiceData(spaced_repetition.InCategory(7)))
	require.NoError(t, err)
	id, ok := cb.filter.CategoryID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	cb, err = parseCallback(showData(12))
	require.NoError(t, err)
	assert.Equal(t, callbackShow, cb.action)
	assert.Equal(t, int64(12), cb.challengeID)

	cb, err = parseCallback(answerData(12, true))
	require.NoError(t, err)
	assert.Equal(t, callbackAnswer, cb.action)
	assert.Equal(t, int64(12), cb.challengeID)
	assert.True(t, cb.correct)

	cb, err = parseCallback(answerData(3, false))
	require.NoError(t, err)
	assert.False(t, cb.correct)
}

func TestParseCallbackRejectsMalformedData(t *testing.T) {
	for _, data := range []string{"", "bogus", "practice", "practice:x", "show:", "show:1:2", "answer:1", "answer:a:1"} {
		_, err := parseCallback(data)
		assert.Error(t, err, data)
	}
}

func TestParseNotifyArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		enabled bool
		hour    int
		wantErr bool
	}{
		{name: "on keeps hour", args: "on", enabled: true, hour: 9},
		{name: "on with hour", args: "on 18", enabled: true, hour: 18},
		{name: "off", args: "OFF", enabled: false, hour: 9},
		{name: "empty", args: "", wantErr: true},
		{name: "unknown", args: "maybe", wantErr: true},
		{name: "hour too large", args: "on 24", wantErr: true},
		{name: "hour not a number", args: "on noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled, hour, err := parseNotifyArgs(tt.args, 9)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, enabled)
			assert.Equal(t, tt.hour, hour)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1h0m0s", formatDuration(time.Hour))
	assert.Equal(t, "1 day", formatDuration(24*time.Hour))
	assert.Equal(t, "30 days", formatDuration(720*time.Hour))
	assert.Equal(t, "36h0m0s", formatDuration(36*time.Hour))
}

func TestFormatDueCounts(t *testing.T) {
	categories := []models.Category{{ID: 1, Title: "Go"}, {ID: 2, Title: "SQL"}}
	counts := map[int64]int{1: 3}

	text := formatDueCounts(categories, counts)
	assert.Contains(t, text, "Go: 3")
	assert.Contains(t, text, "SQL: 0")
	assert.Contains(t, text, "Total: 3")

	buttons := dueKeyboard(categories, counts)
	require.Len(t, buttons, 2)
	assert.Equal(t, "practice:all", buttons[0][0].CallbackData)
	assert.Equal(t, "practice:1", buttons[1][0].CallbackData)

	assert.Equal(t, "There are no categories yet.", formatDueCounts(nil, nil))
}

func TestFormatStageDistribution(t *testing.T) {
	dist := database.StageDistribution{1: 2, 2: 0, 3: 1, 4: 0, 5: 0, 6: 0}
	text := formatStageDistribution(dist)
	assert.Contains(t, text, "Stage 1: 2")
	assert.Contains(t, text, "Stage 3: 1")
	assert.Contains(t, text, "Tracked: 3")

	assert.Equal(t, "You have not practiced any challenge yet.",
		formatStageDistribution(database.StageDistribution{1: 0}))
}

func TestFormatSettings(t *testing.T) {
	settings := models.Settings{
		TimeboxStage1: time.Hour,
		TimeboxStage2: 24 * time.Hour,
		TimeboxStage3: 72 * time.Hour,
		TimeboxStage4: 168 * time.Hour,
		TimeboxStage5: 336 * time.Hour,
		TimeboxStage6: 720 * time.Hour,
	}

	text := formatSettings(models.User{NotificationEnabled: true, NotificationHour: 7}, settings)
	assert.Contains(t, text, "Stage 1: 1h0m0s")
	assert.Contains(t, text, "Stage 4: 7 days")
	assert.Contains(t, text, "Reminders: on at 07:00 UTC")

	text = formatSettings(models.User{}, settings)
	assert.Contains(t, text, "Reminders: off")
}
