package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/keepmind9/botkit/internal/command"
	"github.com/keepmind9/botkit/pkg/constants"
	"github.com/sirupsen/logrus"
)

const discordPlatform = "discord"

// DiscordSession is the part of *discordgo.Session the adapter uses.
// Tests substitute a mock.
type DiscordSession interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// intentNames maps configuration names to gateway intents
var intentNames = map[string]discordgo.Intent{
	"guilds":                   discordgo.IntentsGuilds,
	"guild_members":            discordgo.IntentsGuildMembers,
	"guild_presences":          discordgo.IntentsGuildPresences,
	"guild_messages":           discordgo.IntentsGuildMessages,
	"guild_message_reactions":  discordgo.IntentsGuildMessageReactions,
	"direct_messages":          discordgo.IntentsDirectMessages,
	"direct_message_reactions": discordgo.IntentsDirectMessageReactions,
	"message_content":          discordgo.IntentsMessageContent,
	"non_privileged":           discordgo.IntentsAllWithoutPrivileged,
	"all":                      discordgo.IntentsAll,
}

// DefaultDiscordIntents lets raw message responders see message text
var DefaultDiscordIntents = []string{"non_privileged", "message_content"}

// ParseIntents combines intent names into a bitmask
func ParseIntents(names []string) (discordgo.Intent, error) {
	var intents discordgo.Intent
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		intent, ok := intentNames[key]
		if !ok {
			known := make([]string, 0, len(intentNames))
			for k := range intentNames {
				known = append(known, k)
			}
			sort.Strings(known)
			return 0, fmt.Errorf("unknown discord intent %q (known: %s)", name, strings.Join(known, ", "))
		}
		intents |= intent
	}
	return intents, nil
}

// DiscordOptions configures the Discord adapter
type DiscordOptions struct {
	Token   string
	Intents discordgo.Intent
	// GuildID publishes commands to one guild instead of globally
	GuildID string
	// DisableReconnect makes a dropped connection end Start with an error
	DisableReconnect bool
	Log              logrus.FieldLogger
}

// Discord implements Client for Discord
type Discord struct {
	mu        sync.RWMutex
	session   DiscordSession
	guildID   string
	appID     string
	labels    map[publishedName]string
	reconnect bool
	log       logrus.FieldLogger
	fatal     chan error
	fatalOnce sync.Once
}

// NewDiscord creates a Discord session with the given token and intents.
// No network call is made until PublishCommands or Start.
func NewDiscord(opts DiscordOptions) (*Discord, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("discord token is empty")
	}

	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = opts.Intents
	session.ShouldReconnectOnError = !opts.DisableReconnect

	d := newDiscordWithSession(session, opts)
	d.log.WithFields(logrus.Fields{
		"token":   maskSecret(opts.Token),
		"intents": int(opts.Intents),
		"guild":   opts.GuildID,
	}).Info("discord-client-created")
	return d, nil
}

func newDiscordWithSession(session DiscordSession, opts DiscordOptions) *Discord {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Discord{
		session:   session,
		guildID:   opts.GuildID,
		labels:    make(map[publishedName]string),
		reconnect: !opts.DisableReconnect,
		log:       log.WithField("platform", discordPlatform),
		fatal:     make(chan error, 1),
	}
}

// Platform implements Client
func (d *Discord) Platform() string { return discordPlatform }

// PublishCommands replaces the application's command set with cmds
func (d *Discord) PublishCommands(ctx context.Context, cmds []*command.Command) error {
	appID, err := d.applicationID()
	if err != nil {
		return err
	}

	defs := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	labels := make(map[publishedName]string, len(cmds))
	for _, cmd := range cmds {
		def := toApplicationCommand(cmd)
		defs = append(defs, def)
		labels[publishedName{message: cmd.Type == command.KindMessageAction, name: def.Name}] = cmd.Name
	}

	if _, err := d.session.ApplicationCommandBulkOverwrite(appID, d.guildID, defs); err != nil {
		return fmt.Errorf("failed to overwrite discord application commands: %w", err)
	}

	d.mu.Lock()
	d.labels = labels
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{
		"count": len(defs),
		"guild": d.guildID,
	}).Info("discord-commands-published")
	return nil
}

func (d *Discord) applicationID() (string, error) {
	d.mu.RLock()
	appID := d.appID
	d.mu.RUnlock()
	if appID != "" {
		return appID, nil
	}

	me, err := d.session.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to resolve discord application id: %w", err)
	}

	d.mu.Lock()
	d.appID = me.ID
	d.mu.Unlock()
	return me.ID, nil
}

// LookupUser implements command.UserDirectory
func (d *Discord) LookupUser(ctx context.Context, userID string) (*command.User, error) {
	u, err := d.session.User(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord user %s: %w", userID, err)
	}
	created, err := discordgo.SnowflakeTimestamp(u.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid discord user id %s: %w", u.ID, err)
	}
	return &command.User{ID: u.ID, Username: u.Username, CreatedAt: created}, nil
}

// Start opens the gateway connection and blocks until ctx is done
func (d *Discord) Start(ctx context.Context, sink EventSink) error {
	d.session.AddHandler(func(_ *discordgo.Session, e *discordgo.Event) {
		d.log.WithField("event", e.Type).Debug("discord-event")
	})
	d.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		if r.User != nil {
			d.mu.Lock()
			if d.appID == "" {
				d.appID = r.User.ID
			}
			d.mu.Unlock()
			d.log.WithField("username", r.User.Username).Info("discord-logged-in")
		}
	})
	d.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		d.log.WithField("reconnect", d.reconnect).Warn("discord-disconnected")
		if !d.reconnect {
			d.fatalOnce.Do(func() { d.fatal <- ErrNotConnected })
		}
	})
	d.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		d.log.Info("discord-session-resumed")
	})
	d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		d.handleMessage(ctx, sink, m)
	})
	d.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		d.handleInteraction(ctx, sink, i)
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	d.log.Info("discord-connection-opened")

	select {
	case <-ctx.Done():
		return nil
	case err := <-d.fatal:
		return err
	}
}

// Close closes the gateway connection
func (d *Discord) Close() error {
	if err := d.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

func (d *Discord) handleMessage(ctx context.Context, sink EventSink, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}

	d.log.WithFields(logrus.Fields{
		"user_id":  m.Author.ID,
		"username": m.Author.Username,
		"channel":  m.ChannelID,
	}).Debug("received-discord-message")

	channelID := m.ChannelID
	sink.DispatchMessage(ctx, toMessage(m.Message), command.ReplyFunc(func(ctx context.Context, text string) error {
		return d.sendChannelMessage(channelID, text)
	}))
}

func (d *Discord) handleInteraction(ctx context.Context, sink EventSink, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	// only message context menu commands carry a target
	name := d.registryName(publishedName{message: data.TargetID != "", name: data.Name})

	inv := &command.Invocation{
		ID:        uuid.NewString(),
		Platform:  discordPlatform,
		Command:   name,
		UserID:    interactionUserID(i),
		ChannelID: i.ChannelID,
		Args:      command.Args{},
		Reply:     &interactionReply{session: d.session, interaction: i.Interaction},
	}

	if cmd, ok := sink.Command(name); ok {
		inv.Args = interactionArgs(cmd, data)
	}

	outcome := sink.Dispatch(ctx, inv)
	d.log.WithFields(logrus.Fields{
		"command":       name,
		"invocation_id": inv.ID,
		"outcome":       outcome.String(),
	}).Debug("discord-interaction-dispatched")
}

// publishedName identifies a command as Discord sees it. Slash commands and
// message actions live in separate namespaces, so a label may repeat a slash
// command's name.
type publishedName struct {
	message bool
	name    string
}

func (d *Discord) registryName(published publishedName) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.labels[published]; ok {
		return name
	}
	return published.name
}

func (d *Discord) sendChannelMessage(channelID, text string) error {
	text = truncate(text, constants.MaxDiscordMessageLength)
	if _, err := d.session.ChannelMessageSend(channelID, text); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

// interactionReply answers an interaction with a channel message
type interactionReply struct {
	session     DiscordSession
	interaction *discordgo.Interaction
}

func (r *interactionReply) Reply(ctx context.Context, text string) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(text, constants.MaxDiscordMessageLength),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to respond to interaction %s: %w", r.interaction.ID, err)
	}
	return nil
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func interactionArgs(cmd *command.Command, data discordgo.ApplicationCommandInteractionData) command.Args {
	args := command.Args{}

	if cmd.Type == command.KindMessageAction {
		param, ok := cmd.TargetParam()
		if ok && data.Resolved != nil {
			if m, found := data.Resolved.Messages[data.TargetID]; found && m != nil {
				args[param] = toMessage(m)
			}
		}
		return args
	}

	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionUser:
			if id, ok := opt.Value.(string); ok {
				args[opt.Name] = command.UserRef(id)
			}
		case discordgo.ApplicationCommandOptionString:
			args[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			args[opt.Name] = opt.IntValue()
		case discordgo.ApplicationCommandOptionBoolean:
			args[opt.Name] = opt.BoolValue()
		default:
			args[opt.Name] = opt.Value
		}
	}
	return args
}

func toMessage(m *discordgo.Message) *command.Message {
	msg := &command.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
	}
	return msg
}

func toApplicationCommand(cmd *command.Command) *discordgo.ApplicationCommand {
	if cmd.Type == command.KindMessageAction {
		name := cmd.Label
		if name == "" {
			name = cmd.Name
		}
		return &discordgo.ApplicationCommand{
			Name: name,
			Type: discordgo.MessageApplicationCommand,
		}
	}

	description := cmd.Description
	if description == "" {
		description = cmd.Name
	}
	def := &discordgo.ApplicationCommand{
		Name:        cmd.Name,
		Description: description,
		Type:        discordgo.ChatApplicationCommand,
	}
	for _, p := range cmd.Params {
		desc := p.Description
		if desc == "" {
			desc = p.Name
		}
		def.Options = append(def.Options, &discordgo.ApplicationCommandOption{
			Type:        optionType(p.Type),
			Name:        p.Name,
			Description: desc,
			Required:    !p.Optional,
		})
	}
	return def
}

func optionType(t command.ParamType) discordgo.ApplicationCommandOptionType {
	switch t {
	case command.ParamUser:
		return discordgo.ApplicationCommandOptionUser
	case command.ParamInteger:
		return discordgo.ApplicationCommandOptionInteger
	case command.ParamBoolean:
		return discordgo.ApplicationCommandOptionBoolean
	default:
		return discordgo.ApplicationCommandOptionString
	}
}
