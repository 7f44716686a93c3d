package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/keepmind9/botkit/internal/command"
	"github.com/keepmind9/botkit/pkg/constants"
	"github.com/sirupsen/logrus"
)

const telegramPlatform = "telegram"

// TelegramAPI is the part of *tgbotapi.BotAPI the adapter uses
type TelegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramOptions configures the Telegram adapter
type TelegramOptions struct {
	Token       string
	PollTimeout time.Duration
	Log         logrus.FieldLogger
}

// Telegram implements Client for Telegram using long polling.
//
// A "/name args" message naming a registered command becomes a structured
// invocation. When the message is a reply, the replied-to message fills the
// message parameter and its author fills a user parameter. Every other text
// message goes to the responders.
type Telegram struct {
	api         TelegramAPI
	pollTimeout time.Duration
	log         logrus.FieldLogger
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewTelegram connects to the Bot API and verifies the token
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}

	bot, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	t := newTelegramWithAPI(bot, opts)
	t.log.WithFields(logrus.Fields{
		"token":        maskSecret(opts.Token),
		"bot_username": bot.Self.UserName,
		"bot_id":       bot.Self.ID,
	}).Info("telegram-bot-initialized")
	return t, nil
}

func newTelegramWithAPI(api TelegramAPI, opts TelegramOptions) *Telegram {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = constants.DefaultPollTimeout
	}
	return &Telegram{
		api:         api,
		pollTimeout: timeout,
		log:         log.WithField("platform", telegramPlatform),
	}
}

// Platform implements Client
func (t *Telegram) Platform() string { return telegramPlatform }

// PublishCommands sets the bot's command menu
func (t *Telegram) PublishCommands(ctx context.Context, cmds []*command.Command) error {
	defs := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, cmd := range cmds {
		defs = append(defs, tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: telegramDescription(cmd),
		})
	}

	if _, err := t.api.Request(tgbotapi.NewSetMyCommands(defs...)); err != nil {
		return fmt.Errorf("failed to set telegram commands: %w", err)
	}

	t.log.WithField("count", len(defs)).Info("telegram-commands-published")
	return nil
}

// LookupUser always fails: the Bot API does not expose account creation dates
func (t *Telegram) LookupUser(ctx context.Context, userID string) (*command.User, error) {
	return nil, fmt.Errorf("telegram user %s: %w", userID, ErrUserInfoUnavailable)
}

// Start long-polls for updates until ctx is done or the update channel closes
func (t *Telegram) Start(ctx context.Context, sink EventSink) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(t.pollTimeout.Seconds())
	updates := t.api.GetUpdatesChan(u)
	t.log.WithField("timeout", u.Timeout).Info("telegram-long-polling-started")

	defer t.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			t.stop()
			t.log.Info("telegram-long-polling-stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				t.log.Warn("telegram-updates-channel-closed")
				return fmt.Errorf("telegram updates channel closed: %w", ErrNotConnected)
			}
			if update.Message == nil {
				continue
			}
			t.wg.Add(1)
			go func(m *tgbotapi.Message) {
				defer t.wg.Done()
				t.handleMessage(ctx, sink, m)
			}(update.Message)
		}
	}
}

// Close stops long polling
func (t *Telegram) Close() error {
	t.stop()
	return nil
}

func (t *Telegram) stop() {
	t.stopOnce.Do(t.api.StopReceivingUpdates)
}

func (t *Telegram) handleMessage(ctx context.Context, sink EventSink, m *tgbotapi.Message) {
	if m.From == nil || m.From.IsBot || m.Chat == nil || m.Text == "" {
		return
	}

	chatID := m.Chat.ID
	reply := command.ReplyFunc(func(ctx context.Context, text string) error {
		return t.sendMessage(chatID, m.MessageID, text)
	})

	t.log.WithFields(logrus.Fields{
		"user_id":  m.From.ID,
		"username": m.From.UserName,
		"chat_id":  chatID,
	}).Debug("received-telegram-message")

	if m.IsCommand() {
		if cmd, ok := sink.Command(m.Command()); ok {
			inv := &command.Invocation{
				ID:        uuid.NewString(),
				Platform:  telegramPlatform,
				Command:   cmd.Name,
				UserID:    strconv.FormatInt(m.From.ID, 10),
				ChannelID: strconv.FormatInt(chatID, 10),
				Args:      commandArgs(cmd, m),
				Reply:     reply,
			}
			outcome := sink.Dispatch(ctx, inv)
			t.log.WithFields(logrus.Fields{
				"command":       cmd.Name,
				"invocation_id": inv.ID,
				"outcome":       outcome.String(),
			}).Debug("telegram-command-dispatched")
			return
		}
	}

	sink.DispatchMessage(ctx, toTelegramMessage(m), reply)
}

func (t *Telegram) sendMessage(chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, truncate(text, constants.MaxTelegramMessageLength))
	msg.ReplyToMessageID = replyTo
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// commandArgs fills parameters in declaration order. Message and user
// parameters come from the replied-to message when there is one; the rest
// consume whitespace-separated words, and the last string parameter takes
// whatever is left.
func commandArgs(cmd *command.Command, m *tgbotapi.Message) command.Args {
	args := command.Args{}
	words := strings.Fields(m.CommandArguments())
	target := m.ReplyToMessage

	for i, p := range cmd.Params {
		switch p.Type {
		case command.ParamMessage:
			if target != nil {
				args[p.Name] = toTelegramMessage(target)
			}
			continue
		case command.ParamUser:
			if target != nil && target.From != nil {
				args[p.Name] = command.UserRef(strconv.FormatInt(target.From.ID, 10))
				continue
			}
		}

		if len(words) == 0 {
			continue
		}
		word := words[0]
		words = words[1:]

		switch p.Type {
		case command.ParamUser:
			args[p.Name] = command.UserRef(strings.TrimPrefix(word, "@"))
		case command.ParamInteger:
			if n, err := strconv.ParseInt(word, 10, 64); err == nil {
				args[p.Name] = n
			}
		case command.ParamBoolean:
			if b, err := strconv.ParseBool(word); err == nil {
				args[p.Name] = b
			}
		default:
			if i == len(cmd.Params)-1 && len(words) > 0 {
				word = strings.Join(append([]string{word}, words...), " ")
				words = nil
			}
			args[p.Name] = word
		}
	}
	return args
}

func toTelegramMessage(m *tgbotapi.Message) *command.Message {
	msg := &command.Message{
		ID:      strconv.Itoa(m.MessageID),
		Content: m.Text,
	}
	if m.Chat != nil {
		msg.ChannelID = strconv.FormatInt(m.Chat.ID, 10)
	}
	if m.From != nil {
		msg.AuthorID = strconv.FormatInt(m.From.ID, 10)
	}
	return msg
}

func telegramDescription(cmd *command.Command) string {
	if cmd.Description != "" {
		return cmd.Description
	}
	if cmd.Type == command.KindMessageAction {
		label := cmd.Label
		if label == "" {
			label = cmd.Name
		}
		return fmt.Sprintf("%s (reply to a message)", label)
	}
	return cmd.Name
}
