package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/brainphaser/internal/database"
	"github.com/example/brainphaser/internal/excel"
	"github.com/example/brainphaser/internal/spaced_repetition"
	"github.com/example/brainphaser/pkg/models"
)

const helpText = `Available commands:
/due - Show due challenges per category
/practice [category] - Practice due challenges
/stats - Show your progress per stage
/settings - Show your practice intervals
/notify on|off [hour] - Configure daily reminders (UTC)
/help - Show this message`

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		message := update.Message
		switch {
		case message.IsCommand():
			err = b.HandleCommand(ctx, message)
		case message.Document != nil:
			err = b.handleDocument(ctx, message)
		default:
			b.sendMessage(message.Chat.ID, "I don't understand. Use /help to see what I can do.")
		}
	}
	if err != nil {
		b.logger.Error("Failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	var err error
	switch message.Command() {
	case "start":
		err = b.handleStart(ctx, message)
	case "help":
		b.sendMessage(message.Chat.ID, helpText)
	case "due":
		err = b.handleDue(ctx, message)
	case "practice":
		err = b.handlePractice(ctx, message)
	case "stats":
		err = b.handleStats(ctx, message)
	case "settings":
		err = b.handleSettings(ctx, message)
	case "notify":
		err = b.handleNotify(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
	return err
}

// userFor registers the sender on first contact
func (b *Bot) userFor(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	return b.store.Users.GetOrCreateByTelegramID(ctx, from.ID, from.UserName, from.FirstName)
}

func (b *Bot) dueLogic(ctx context.Context, user *models.User) (*spaced_repetition.DueChallengeLogic, error) {
	settings, err := b.store.Settings.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return spaced_repetition.NewDueChallengeLogic(*user, settings, b.store.Completions, b.store.Challenges,
		spaced_repetition.WithClock(b.now),
		spaced_repetition.WithLogger(b.logger)), nil
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.userFor(ctx, message.From)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	if _, err := b.store.Settings.GetOrCreate(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}

	name := user.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("Hi %s! I will ask you questions again right before you are about to forget them.\n\n%s", name, helpText)
	if b.isAdmin(message.From.ID) {
		text += "\n\nSend me an .xlsx or .csv file (category, question, answer) to import challenges."
	}
	b.sendMessage(message.Chat.ID, text)
	return nil
}

func (b *Bot) handleDue(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.userFor(ctx, message.From)
	if err != nil {
		return err
	}
	logic, err := b.dueLogic(ctx, user)
	if err != nil {
		return err
	}
	categories, err := b.store.Categories.GetAll(ctx)
	if err != nil {
		return err
	}
	counts, err := logic.CountDueByCategory(ctx, categories)
	if err != nil {
		b.sendMessage(message.Chat.ID, "Could not compute your due challenges, please try again later.")
		return err
	}

	b.sendWithKeyboard(message.Chat.ID, formatDueCounts(categories, counts), dueKeyboard(categories, counts))
	return nil
}

func (b *Bot) handlePractice(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.userFor(ctx, message.From)
	if err != nil {
		return err
	}

	filter := spaced_repetition.AllCategories()
	if title := strings.TrimSpace(message.CommandArguments()); title != "" {
		category, err := b.store.Categories.GetByTitle(ctx, title)
		if errors.Is(err, database.ErrNotFound) {
			b.sendMessage(message.Chat.ID, fmt.Sprintf("There is no category called %q.", title))
			return nil
		}
		if err != nil {
			return err
		}
		filter = spaced_repetition.InCategory(category.ID)
	}
	return b.startPractice(ctx, message.Chat.ID, message.From.ID, user, filter)
}

// startPractice collects the due challenges and asks the first one
func (b *Bot) startPractice(ctx context.Context, chatID, telegramID int64, user *models.User, filter spaced_repetition.CategoryFilter) error {
	logic, err := b.dueLogic(ctx, user)
	if err != nil {
		return err
	}
	due, err := logic.GetDueChallenges(ctx, filter)
	if err != nil {
		b.sendMessage(chatID, "Could not load your due challenges, please try again later.")
		return err
	}
	if len(due) == 0 {
		b.setSession(telegramID, nil)
		b.sendMessage(chatID, "Nothing is due right now. Come back later!")
		return nil
	}

	b.logger.Info("Starting practice",
		zap.Int64("user_id", user.ID),
		zap.Stringer("category", filter),
		zap.Int("due", len(due)))
	b.setSession(telegramID, &practiceSession{filter: filter, queue: due})
	return b.askNext(ctx, chatID, telegramID)
}

// askNext sends the next question of the session
func (b *Bot) askNext(ctx context.Context, chatID, telegramID int64) error {
	for {
		id, ok := b.nextInSession(telegramID)
		if !ok {
			b.sendMessage(chatID, "Practice finished, well done!")
			return nil
		}
		challenge, err := b.store.Challenges.GetByID(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		b.sendWithKeyboard(chatID, challenge.Question, [][]MenuButton{
			{{Text: "Show answer", CallbackData: showData(challenge.ID)}},
		})
		return nil
	}
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.userFor(ctx, message.From)
	if err != nil {
		return err
	}
	dist, err := b.store.Statistics.GetStageDistribution(ctx, user.ID)
	if err != nil {
		return err
	}
	b.sendMessage(message.Chat.ID, formatStageDistribution(dist))
	return nil
}

func (b *Bot) handleSettings(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.userFor(ctx, message.From)
	if err != nil {
		return err
	}
	settings, err := b.store.Settings.GetOrCreate(ctx, user.ID)
	if err != nil {
		return err
	}
	b.sendMessage(message.Chat.ID, formatSettings(*user, settings))
	return nil
}

func (b *Bot) handleNotify(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.userFor(ctx, message.From)
	if err != nil {
		return err
	}
	enabled, hour, err := parseNotifyArgs(message.CommandArguments(), user.NotificationHour)
	if err != nil {
		b.sendMessage(message.Chat.ID, err.Error())
		return nil
	}
	if err := b.store.Users.SetNotifications(ctx, user.ID, enabled, hour); err != nil {
		return err
	}

	if enabled {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Reminders enabled at %02d:00 UTC.", hour))
	} else {
		b.sendMessage(message.Chat.ID, "Reminders disabled.")
	}
	return nil
}

// handleCallbackQuery handles callback queries from buttons
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if _, err := b.client.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}
	if query.Message == nil || query.From == nil {
		return nil
	}
	chatID := query.Message.Chat.ID

	cb, err := parseCallback(query.Data)
	if err != nil {
		return err
	}
	user, err := b.userFor(ctx, query.From)
	if err != nil {
		return err
	}

	switch cb.action {
	case callbackPractice:
		return b.startPractice(ctx, chatID, query.From.ID, user, cb.filter)
	case callbackShow:
		challenge, err := b.store.Challenges.GetByID(ctx, cb.challengeID)
		if err != nil {
			return err
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, query.Message.MessageID,
			fmt.Sprintf("%s\n\n%s", challenge.Question, challenge.Answer),
			createKeyboard([][]MenuButton{{
				{Text: "✅ Right", CallbackData: answerData(challenge.ID, true)},
				{Text: "❌ Wrong", CallbackData: answerData(challenge.ID, false)},
			}}))
		if _, err := b.client.Send(edit); err != nil {
			return fmt.Errorf("failed to show answer: %w", err)
		}
		return nil
	case callbackAnswer:
		completion, err := b.answers.RecordAnswer(ctx, user.ID, cb.challengeID, cb.correct)
		if err != nil {
			return err
		}
		b.sendMessage(chatID, fmt.Sprintf("Moved to stage %d.", completion.Stage))
		if _, ok := b.session(query.From.ID); !ok {
			return nil
		}
		return b.askNext(ctx, chatID, query.From.ID)
	}
	return nil
}

// handleDocument imports challenges from a spreadsheet sent by an admin
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	if !b.isAdmin(message.From.ID) {
		b.sendMessage(chatID, "Only administrators can import challenges.")
		return nil
	}

	ext := strings.ToLower(filepath.Ext(message.Document.FileName))
	if ext != ".xlsx" && ext != ".csv" {
		b.sendMessage(chatID, "Please send an .xlsx or .csv file.")
		return nil
	}

	url, err := b.client.GetFileDirectURL(message.Document.FileID)
	if err != nil {
		return fmt.Errorf("failed to get file URL: %w", err)
	}
	path, err := b.download(ctx, url, ext)
	if err != nil {
		b.sendMessage(chatID, "Could not download the file.")
		return err
	}
	defer os.Remove(path)

	cfg := excel.DefaultImportConfig()
	cfg.FilePath = path
	result, err := b.importer.ImportChallenges(ctx, cfg)
	if err != nil {
		b.sendMessage(chatID, fmt.Sprintf("Import failed: %v", err))
		return err
	}
	b.sendMessage(chatID, formatImportResult(result))
	return nil
}

// download stores the file at url in a temporary file
func (b *Bot) download(ctx context.Context, url, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	file, err := os.CreateTemp("", "import-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return file.Name(), nil
}
