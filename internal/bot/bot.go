package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/brainphaser/internal/config"
	"github.com/example/brainphaser/internal/database"
	"github.com/example/brainphaser/internal/excel"
	"github.com/example/brainphaser/internal/spaced_repetition"
	"github.com/example/brainphaser/pkg/models"
)

// telegramAPI is the part of tgbotapi.BotAPI used by the handlers
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// practiceSession holds the challenges a user still has to answer
type practiceSession struct {
	filter spaced_repetition.CategoryFilter
	queue  []int64
}

func (s *practiceSession) next() (int64, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	id := s.queue[0]
	s.queue = s.queue[1:]
	return id, true
}

// Bot represents the Telegram bot application
type Bot struct {
	api        *tgbotapi.BotAPI
	client     telegramAPI
	store      *database.Store
	importer   *excel.Importer
	answers    *spaced_repetition.AnswerLogic
	cfg        *config.Config
	logger     *zap.Logger
	httpClient *http.Client
	now        func() time.Time

	mu       sync.Mutex
	sessions map[int64]*practiceSession
}

// New creates a new bot instance and authorizes it against Telegram
func New(cfg *config.Config, store *database.Store, importer *excel.Importer, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	b := newBot(api, cfg, store, importer, logger)
	b.api = api
	return b, nil
}

func newBot(client telegramAPI, cfg *config.Config, store *database.Store, importer *excel.Importer, logger *zap.Logger) *Bot {
	return &Bot{
		client:     client,
		store:      store,
		importer:   importer,
		answers:    spaced_repetition.NewAnswerLogic(store.Completions, logger),
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
		sessions:   make(map[int64]*practiceSession),
	}
}

// Start receives updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)
	b.logger.Info("Bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	b.logger.Info("Bot stopped")
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(_ context.Context, user models.User, dueCount int) error {
	noun := "challenges"
	if dueCount == 1 {
		noun = "challenge"
	}
	msg := tgbotapi.NewMessage(user.TelegramID,
		fmt.Sprintf("You have %d %s due for practice.", dueCount, noun))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "Practice now", CallbackData: practiceData(spaced_repetition.AllCategories())}},
	})

	if _, err := b.client.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to %d: %w", user.TelegramID, err)
	}
	return nil
}

func (b *Bot) isAdmin(telegramID int64) bool {
	return b.cfg.IsAdmin(telegramID)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.client.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, buttons [][]MenuButton) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(buttons)
	if _, err := b.client.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) session(telegramID int64) (*practiceSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[telegramID]
	return s, ok
}

func (b *Bot) setSession(telegramID int64, s *practiceSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil {
		delete(b.sessions, telegramID)
		return
	}
	b.sessions[telegramID] = s
}

// nextInSession pops the next challenge of the user's session and drops
// the session once it is empty
func (b *Bot) nextInSession(telegramID int64) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[telegramID]
	if !ok {
		return 0, false
	}
	id, ok := s.next()
	if !ok {
		delete(b.sessions, telegramID)
	}
	return id, ok
}
