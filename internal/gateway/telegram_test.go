package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/keepmind9/botkit/internal/command"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockTelegramAPI is a mock implementation of TelegramAPI for testing
type MockTelegramAPI struct {
	mu         sync.Mutex
	updates    chan tgbotapi.Update
	config     tgbotapi.UpdateConfig
	stopCalls  int
	sent       []tgbotapi.MessageConfig
	requests   []tgbotapi.Chattable
	requestErr error
}

func newMockTelegramAPI() *MockTelegramAPI {
	return &MockTelegramAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (m *MockTelegramAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
	return m.updates
}

func (m *MockTelegramAPI) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
}

func (m *MockTelegramAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{MessageID: 1}, nil
}

func (m *MockTelegramAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requestErr != nil {
		return nil, m.requestErr
	}
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *MockTelegramAPI) sentMessages() []tgbotapi.MessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), m.sent...)
}

func newTestTelegram(api *MockTelegramAPI) *Telegram {
	log, _ := logtest.NewNullLogger()
	return newTelegramWithAPI(api, TelegramOptions{Log: log})
}

func textMessage(id int, from int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: id,
		From:      &tgbotapi.User{ID: from, UserName: "user"},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      text,
	}
}

func commandMessage(id int, from int64, text string) *tgbotapi.Message {
	m := textMessage(id, from, text)
	length := len(strings.Fields(text)[0])
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return m
}

// runTelegram starts the poll loop and returns a stop function that waits for Start
func runTelegram(t *testing.T, tg *Telegram, sink EventSink) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tg.Start(ctx, sink) }()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(time.Second):
			t.Fatal("Start did not return after cancellation")
			return nil
		}
	}
}

func waitDispatched(t *testing.T, sink *fakeSink) {
	t.Helper()
	select {
	case <-sink.dispatched:
	case <-time.After(time.Second):
		t.Fatal("nothing was dispatched")
	}
}

func TestNewTelegram_EmptyTokenFails(t *testing.T) {
	_, err := NewTelegram(TelegramOptions{})
	assert.Error(t, err)
}

func TestTelegram_DefaultPollTimeout(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)
	stop := runTelegram(t, tg, newFakeSink())
	require.NoError(t, stop())

	assert.Equal(t, 60, api.config.Timeout)
	assert.Equal(t, 1, api.stopCalls)
	assert.Equal(t, "telegram", tg.Platform())
}

func TestTelegram_PublishCommands(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)

	require.NoError(t, tg.PublishCommands(context.Background(), []*command.Command{ageCommand, puteCommand}))
	require.Len(t, api.requests, 1)

	cfg, ok := api.requests[0].(tgbotapi.SetMyCommandsConfig)
	require.True(t, ok)
	require.Len(t, cfg.Commands, 2)
	assert.Equal(t, "age", cfg.Commands[0].Command)
	assert.Equal(t, ageCommand.Description, cfg.Commands[0].Description)
	assert.Equal(t, "pute", cfg.Commands[1].Command)
	assert.Equal(t, "Pute (reply to a message)", cfg.Commands[1].Description)
}

func TestTelegram_PublishCommands_Failure(t *testing.T) {
	api := newMockTelegramAPI()
	api.requestErr = errors.New("Unauthorized")
	tg := newTestTelegram(api)

	assert.Error(t, tg.PublishCommands(context.Background(), []*command.Command{ageCommand}))
}

func TestTelegram_LookupUserUnavailable(t *testing.T) {
	tg := newTestTelegram(newMockTelegramAPI())
	_, err := tg.LookupUser(context.Background(), "1")
	assert.ErrorIs(t, err, ErrUserInfoUnavailable)
}

func TestTelegram_Start_ClosedChannelIsConnectionLoss(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)
	close(api.updates)

	err := tg.Start(context.Background(), newFakeSink())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTelegram_RawMessageGoesToResponders(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)
	sink := newFakeSink(ageCommand)
	sink.reply = "Pong!"
	stop := runTelegram(t, tg, sink)

	api.updates <- tgbotapi.Update{Message: textMessage(7, 100, "!ping")}
	waitDispatched(t, sink)
	require.NoError(t, stop())

	require.Len(t, sink.messages, 1)
	assert.Equal(t, "!ping", sink.messages[0].Content)
	assert.Equal(t, "100", sink.messages[0].AuthorID)
	assert.Equal(t, "42", sink.messages[0].ChannelID)

	sent := api.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Pong!", sent[0].Text)
	assert.Equal(t, int64(42), sent[0].ChatID)
	assert.Equal(t, 7, sent[0].ReplyToMessageID)
}

func TestTelegram_UnknownCommandGoesToResponders(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)
	sink := newFakeSink(ageCommand)
	stop := runTelegram(t, tg, sink)

	api.updates <- tgbotapi.Update{Message: commandMessage(1, 100, "/start")}
	waitDispatched(t, sink)
	require.NoError(t, stop())

	assert.Empty(t, sink.invocations)
	require.Len(t, sink.messages, 1)
}

func TestTelegram_CommandWithReplyTarget(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)
	sink := newFakeSink(ageCommand)
	stop := runTelegram(t, tg, sink)

	m := commandMessage(3, 100, "/age@botkit_bot")
	m.ReplyToMessage = textMessage(2, 555, "hi")
	api.updates <- tgbotapi.Update{Message: m}
	waitDispatched(t, sink)
	require.NoError(t, stop())

	require.Len(t, sink.invocations, 1)
	inv := sink.invocations[0]
	assert.Equal(t, "age", inv.Command)
	assert.Equal(t, "100", inv.UserID)
	assert.Equal(t, "42", inv.ChannelID)
	assert.Equal(t, "telegram", inv.Platform)
	ref, ok := inv.Args.User("user")
	require.True(t, ok)
	assert.Equal(t, command.UserRef("555"), ref)
}

func TestTelegram_MessageActionTarget(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)
	sink := newFakeSink(puteCommand)
	stop := runTelegram(t, tg, sink)

	m := commandMessage(3, 100, "/pute")
	m.ReplyToMessage = textMessage(2, 555, "hello")
	api.updates <- tgbotapi.Update{Message: m}
	waitDispatched(t, sink)
	require.NoError(t, stop())

	require.Len(t, sink.invocations, 1)
	msg, ok := sink.invocations[0].Args.Message("message")
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "555", msg.AuthorID)
}

func TestTelegram_IgnoresBots(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)
	sink := newFakeSink()

	m := textMessage(1, 9, "!ping")
	m.From.IsBot = true
	tg.handleMessage(context.Background(), sink, m)

	assert.Empty(t, sink.messages)
}

func TestCommandArgs_Positional(t *testing.T) {
	cmd := &command.Command{
		Name: "remind",
		Params: []command.Param{
			{Name: "who", Type: command.ParamUser},
			{Name: "minutes", Type: command.ParamInteger},
			{Name: "loud", Type: command.ParamBoolean},
			{Name: "text", Type: command.ParamString},
		},
	}

	args := commandArgs(cmd, commandMessage(1, 1, "/remind @bob 15 true buy more milk"))

	who, _ := args.User("who")
	assert.Equal(t, command.UserRef("bob"), who)
	minutes, _ := args.Int("minutes")
	assert.Equal(t, int64(15), minutes)
	loud, _ := args.Bool("loud")
	assert.True(t, loud)
	text, _ := args.String("text")
	assert.Equal(t, "buy more milk", text)
}

func TestCommandArgs_MissingAndInvalid(t *testing.T) {
	cmd := &command.Command{
		Name: "remind",
		Params: []command.Param{
			{Name: "minutes", Type: command.ParamInteger},
			{Name: "text", Type: command.ParamString, Optional: true},
		},
	}

	args := commandArgs(cmd, commandMessage(1, 1, "/remind soon"))
	_, ok := args.Int("minutes")
	assert.False(t, ok)
	_, ok = args.String("text")
	assert.False(t, ok)
}

func TestTelegram_SendTruncates(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)

	require.NoError(t, tg.sendMessage(42, 0, strings.Repeat("é", 5000)))
	sent := api.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, 4096, len([]rune(sent[0].Text)))
}

func TestTelegram_CloseIsIdempotent(t *testing.T) {
	api := newMockTelegramAPI()
	tg := newTestTelegram(api)

	require.NoError(t, tg.Close())
	require.NoError(t, tg.Close())
	assert.Equal(t, 1, api.stopCalls)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "***", maskSecret("short"))
	assert.Equal(t, "abcd***wxyz", maskSecret("abcdefghijklmnopqrstuvwxyz"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello w...", truncate("hello world!", 10))
}
