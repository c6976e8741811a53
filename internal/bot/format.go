package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/brainphaser/internal/database"
	"github.com/example/brainphaser/internal/excel"
	"github.com/example/brainphaser/internal/spaced_repetition"
	"github.com/example/brainphaser/pkg/models"
)

// Callback data prefixes
const (
	callbackPractice = "practice"
	callbackShow     = "show"
	callbackAnswer   = "answer"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// callback is the decoded form of an inline button's data
type callback struct {
	action      string
	filter      spaced_repetition.CategoryFilter
	challengeID int64
	correct     bool
}

func practiceData(filter spaced_repetition.CategoryFilter) string {
	return callbackPractice + ":" + filter.String()
}

func showData(challengeID int64) string {
	return fmt.Sprintf("%s:%d", callbackShow, challengeID)
}

func answerData(challengeID int64, correct bool) string {
	flag := "0"
	if correct {
		flag = "1"
	}
	return fmt.Sprintf("%s:%d:%s", callbackAnswer, challengeID, flag)
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	cb := callback{action: parts[0]}

	switch cb.action {
	case callbackPractice:
		if len(parts) != 2 {
			return cb, fmt.Errorf("malformed callback %q", data)
		}
		if parts[1] == "all" {
			cb.filter = spaced_repetition.AllCategories()
			return cb, nil
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return cb, fmt.Errorf("malformed callback %q: %w", data, err)
		}
		cb.filter = spaced_repetition.InCategory(id)
	case callbackShow, callbackAnswer:
		if (cb.action == callbackShow && len(parts) != 2) || (cb.action == callbackAnswer && len(parts) != 3) {
			return cb, fmt.Errorf("malformed callback %q", data)
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return cb, fmt.Errorf("malformed callback %q: %w", data, err)
		}
		cb.challengeID = id
		if cb.action == callbackAnswer {
			cb.correct = parts[2] == "1"
		}
	default:
		return cb, fmt.Errorf("unknown callback %q", data)
	}
	return cb, nil
}

// formatDueCounts renders the due overview, one line per category
func formatDueCounts(categories []models.Category, counts map[int64]int) string {
	if len(categories) == 0 {
		return "There are no categories yet."
	}

	var sb strings.Builder
	total := 0
	sb.WriteString("Due challenges:\n")
	for _, c := range categories {
		n := counts[c.ID]
		total += n
		fmt.Fprintf(&sb, "• %s: %d\n", c.Title, n)
	}
	fmt.Fprintf(&sb, "\nTotal: %d", total)
	return sb.String()
}

// dueKeyboard offers one practice button per category with due challenges
func dueKeyboard(categories []models.Category, counts map[int64]int) [][]MenuButton {
	buttons := [][]MenuButton{{{Text: "Practice all", CallbackData: practiceData(spaced_repetition.AllCategories())}}}
	for _, c := range categories {
		if counts[c.ID] == 0 {
			continue
		}
		buttons = append(buttons, []MenuButton{{
			Text:         fmt.Sprintf("%s (%d)", c.Title, counts[c.ID]),
			CallbackData: practiceData(spaced_repetition.InCategory(c.ID)),
		}})
	}
	return buttons
}

func formatStageDistribution(dist database.StageDistribution) string {
	if dist.Total() == 0 {
		return "You have not practiced any challenge yet."
	}
	stages := make([]int, 0, len(dist))
	for stage := range dist {
		stages = append(stages, stage)
	}
	sort.Ints(stages)

	var sb strings.Builder
	sb.WriteString("Challenges per stage:\n")
	for _, stage := range stages {
		fmt.Fprintf(&sb, "Stage %d: %d\n", stage, dist[stage])
	}
	fmt.Fprintf(&sb, "\nTracked: %d", dist.Total())
	return sb.String()
}

func formatSettings(user models.User, settings models.Settings) string {
	var sb strings.Builder
	sb.WriteString("Re-practice intervals:\n")
	for stage := models.MinStage; stage <= models.MaxStage; stage++ {
		timebox, err := spaced_repetition.TimeboxForStage(settings, stage)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "Stage %d: %s\n", stage, formatDuration(timebox))
	}
	if user.NotificationEnabled {
		fmt.Fprintf(&sb, "\nReminders: on at %02d:00 UTC", user.NotificationHour)
	} else {
		sb.WriteString("\nReminders: off")
	}
	return sb.String()
}

// formatDuration prints whole days as days and everything else as Go durations
func formatDuration(d time.Duration) string {
	const day = 24 * time.Hour
	if d >= day && d%day == 0 {
		n := int(d / day)
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	}
	return d.String()
}

// parseNotifyArgs parses "on [hour]" or "off"
func parseNotifyArgs(args string, currentHour int) (enabled bool, hour int, err error) {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) == 0 {
		return false, 0, fmt.Errorf("usage: /notify on|off [hour]")
	}

	hour = currentHour
	switch fields[0] {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return false, 0, fmt.Errorf("usage: /notify on|off [hour]")
	}

	if len(fields) > 1 {
		hour, err = strconv.Atoi(fields[1])
		if err != nil || hour < 0 || hour > 23 {
			return false, 0, fmt.Errorf("hour must be between 0 and 23")
		}
	}
	return enabled, hour, nil
}

func formatImportResult(result *excel.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Import finished.\nProcessed: %d\nCreated: %d\nNew categories: %d\nSkipped duplicates: %d",
		result.TotalProcessed, result.Created, result.CategoriesCreated, result.Skipped)
	if len(result.Errors) > 0 {
		fmt.Fprintf(&sb, "\nErrors: %d", len(result.Errors))
		for i, e := range result.Errors {
			if i == 5 {
				fmt.Fprintf(&sb, "\n…and %d more", len(result.Errors)-5)
				break
			}
			sb.WriteString("\n" + e)
		}
	}
	return sb.String()
}
