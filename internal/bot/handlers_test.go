package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/brainphaser/internal/config"
	"github.com/example/brainphaser/internal/database"
	"github.com/example/brainphaser/internal/excel"
	"github.com/example/brainphaser/pkg/models"
)

const (
	adminID  int64 = 1
	playerID int64 = 42
)

// fakeAPI records everything the bot sends
type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	fileURL string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return f.fileURL, nil
}

// lastText returns the text of the most recent message or edit
func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	switch c := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return c.Text
	case tgbotapi.EditMessageTextConfig:
		return c.Text
	}
	t.Fatalf("unexpected chattable %T", f.sent[len(f.sent)-1])
	return ""
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch c := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, c.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, c.Text)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *database.Store) {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)

	cfg := &config.Config{AdminUserIDs: []int64{adminID}, Timeboxes: config.DefaultTimeboxes}
	store := database.NewStore(db, cfg.DefaultSettings())
	t.Cleanup(func() { _ = store.Close() })

	api := &fakeAPI{}
	logger := zap.NewNop()
	return newBot(api, cfg, store, excel.NewImporter(store, logger), logger), api, store
}

func seed(t *testing.T, store *database.Store, title string, questions ...string) models.Category {
	t.Helper()
	ctx := context.Background()
	category := models.Category{Title: title}
	require.NoError(t, store.Categories.Create(ctx, &category))
	for _, q := range questions {
		require.NoError(t, store.Challenges.Create(ctx, &models.Challenge{
			CategoryID: category.ID,
			Question:   q,
			Answer:     "A: " + q,
		}))
	}
	return category
}

func command(from int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from, FirstName: "Ada"},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func press(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from, FirstName: "Ada"},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

func challengeByQuestion(t *testing.T, store *database.Store, categoryID int64, question string) models.Challenge {
	t.Helper()
	challenges, err := store.Challenges.GetByCategory(context.Background(), categoryID)
	require.NoError(t, err)
	for _, c := range challenges {
		if c.Question == question {
			return c
		}
	}
	t.Fatalf("challenge %q not found", question)
	return models.Challenge{}
}

func TestStartRegistersUser(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, command(playerID, "/start"))

	user, err := store.Users.GetByTelegramID(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Contains(t, api.lastText(t), "Hi Ada!")
	assert.NotContains(t, api.lastText(t), "import")
}

func TestDueShowsCountsPerCategory(t *testing.T) {
	b, api, store := newTestBot(t)
	seed(t, store, "Go", "What is a goroutine?", "What is a channel?")
	seed(t, store, "SQL", "What is a join?")

	b.handleUpdate(context.Background(), command(playerID, "/due"))

	text := api.lastText(t)
	assert.Contains(t, text, "Go: 2")
	assert.Contains(t, text, "SQL: 1")
	assert.Contains(t, text, "Total: 3")
}

func TestPracticeRoundTrip(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()
	category := seed(t, store, "Go", "Q1", "Q2")
	seed(t, store, "SQL", "Q3")

	b.handleUpdate(ctx, command(playerID, "/practice go"))
	first := challengeByQuestion(t, store, category.ID, api.lastText(t))

	b.handleUpdate(ctx, press(playerID, showData(first.ID)))
	assert.Equal(t, first.Question+"\n\n"+first.Answer, api.lastText(t))

	b.handleUpdate(ctx, press(playerID, answerData(first.ID, true)))
	second := challengeByQuestion(t, store, category.ID, api.lastText(t))
	assert.NotEqual(t, first.ID, second.ID)

	b.handleUpdate(ctx, press(playerID, answerData(second.ID, false)))
	assert.Equal(t, "Practice finished, well done!", api.lastText(t))

	user, err := store.Users.GetByTelegramID(ctx, playerID)
	require.NoError(t, err)

	completion, err := store.Completions.GetByUserAndChallenge(ctx, user.ID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, completion)
	assert.Equal(t, 2, completion.Stage)

	completion, err = store.Completions.GetByUserAndChallenge(ctx, user.ID, second.ID)
	require.NoError(t, err)
	require.NotNil(t, completion)
	assert.Equal(t, models.MinStage, completion.Stage)

	assert.Contains(t, api.texts(), "Moved to stage 2.")
	assert.NotContains(t, api.texts(), "Q3")
}

func TestPracticeWithNothingDue(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()
	category := seed(t, store, "Go", "Q1")
	challenge := challengeByQuestion(t, store, category.ID, "Q1")

	b.handleUpdate(ctx, press(playerID, answerData(challenge.ID, true)))
	b.handleUpdate(ctx, command(playerID, "/practice"))

	assert.Equal(t, "Nothing is due right now. Come back later!", api.lastText(t))
}

func TestPracticeUnknownCategory(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleUpdate(context.Background(), command(playerID, "/practice Biology"))

	assert.Equal(t, `There is no category called "Biology".`, api.lastText(t))
}

func TestNotifyUpdatesUser(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, command(playerID, "/notify on 18"))
	assert.Equal(t, "Reminders enabled at 18:00 UTC.", api.lastText(t))

	user, err := store.Users.GetByTelegramID(ctx, playerID)
	require.NoError(t, err)
	assert.True(t, user.NotificationEnabled)
	assert.Equal(t, 18, user.NotificationHour)

	b.handleUpdate(ctx, command(playerID, "/notify off"))
	user, err = store.Users.GetByTelegramID(ctx, playerID)
	require.NoError(t, err)
	assert.False(t, user.NotificationEnabled)

	b.handleUpdate(ctx, command(playerID, "/notify later"))
	assert.Equal(t, "usage: /notify on|off [hour]", api.lastText(t))
}

func TestStatsAndSettings(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()
	category := seed(t, store, "Go", "Q1")
	challenge := challengeByQuestion(t, store, category.ID, "Q1")

	b.handleUpdate(ctx, command(playerID, "/stats"))
	assert.Equal(t, "You have not practiced any challenge yet.", api.lastText(t))

	b.handleUpdate(ctx, press(playerID, answerData(challenge.ID, true)))
	b.handleUpdate(ctx, command(playerID, "/stats"))
	assert.Contains(t, api.lastText(t), "Stage 2: 1")

	b.handleUpdate(ctx, command(playerID, "/settings"))
	assert.Contains(t, api.lastText(t), "Stage 6: 30 days")
}

func TestDocumentImportRequiresAdmin(t *testing.T) {
	b, api, _ := newTestBot(t)

	update := tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: playerID},
		Chat:     &tgbotapi.Chat{ID: playerID},
		Document: &tgbotapi.Document{FileID: "file", FileName: "words.csv"},
	}}
	b.handleUpdate(context.Background(), update)

	assert.Equal(t, "Only administrators can import challenges.", api.lastText(t))
}

func TestDocumentImport(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("category,question,answer\nGo,What is a slice?,A view of an array\nGo,What is a map?,A hash table\n"))
	}))
	defer server.Close()
	api.fileURL = server.URL + "/file.csv"

	update := tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: adminID},
		Chat:     &tgbotapi.Chat{ID: adminID},
		Document: &tgbotapi.Document{FileID: "file", FileName: "challenges.csv"},
	}}
	b.handleUpdate(ctx, update)

	assert.Contains(t, api.lastText(t), "Created: 2")
	category, err := store.Categories.GetByTitle(ctx, "go")
	require.NoError(t, err)
	challenges, err := store.Challenges.GetByCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Len(t, challenges, 2)
}

func TestSendReminder(t *testing.T) {
	b, api, _ := newTestBot(t)

	err := b.SendReminder(context.Background(), models.User{TelegramID: playerID}, 1)
	require.NoError(t, err)
	assert.Equal(t, "You have 1 challenge due for practice.", api.lastText(t))

	api.mu.Lock()
	msg := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	api.mu.Unlock()
	assert.Equal(t, playerID, msg.ChatID)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "practice:all", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestPracticeSessionQueue(t *testing.T) {
	s := &practiceSession{queue: []int64{3, 1}}
	id, ok := s.next()
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
	id, ok = s.next()
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)
	_, ok = s.next()
	assert.False(t, ok)
}
