package core

import (
	"context"
	"fmt"

	"github.com/keepmind9/botkit/internal/command"
	"github.com/keepmind9/botkit/internal/gateway"
	"github.com/keepmind9/botkit/internal/handlers"
	"github.com/sirupsen/logrus"
)

// Engine connects the command dispatcher to one gateway client
type Engine struct {
	config     *Config
	client     gateway.Client
	dispatcher *command.Dispatcher
	log        logrus.FieldLogger
}

// NewEngine creates a new Engine with the builtin handlers registered
func NewEngine(config *Config, client gateway.Client, log logrus.FieldLogger) (*Engine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("platform", client.Platform())

	data := &command.Data{
		Platform:        client.Platform(),
		Users:           client,
		TimestampLayout: config.Commands.TimestampLayout,
	}
	gate := command.NewGate(
		command.BlockUsers(config.Security.BlockedUsers...),
		command.LogHooks{Log: log},
		log,
	)

	registry := command.NewRegistry()
	dispatcher := command.NewDispatcher(registry, gate, command.DispatcherOptions{
		Data:         data,
		FailureReply: config.Commands.FailureReply,
		SilentErrors: config.Commands.SilentErrors,
		Log:          log,
	})
	if err := dispatcher.Add(handlers.Builtins(registry)...); err != nil {
		return nil, &command.StartupError{Stage: "register", Err: err}
	}

	return &Engine{
		config:     config,
		client:     client,
		dispatcher: dispatcher,
		log:        log,
	}, nil
}

// Dispatcher returns the engine's dispatcher
func (e *Engine) Dispatcher() *command.Dispatcher {
	return e.dispatcher
}

// Run publishes the command set and blocks while the gateway delivers events.
// It returns nil when ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	registry := e.dispatcher.Registry()
	e.log.WithFields(logrus.Fields{
		"commands": registry.Len(),
		"blocked":  len(e.config.Security.BlockedUsers),
	}).Info("starting-botkit-engine")

	if err := registry.Publish(ctx, e.client); err != nil {
		return &command.StartupError{Stage: "publish", Err: err}
	}

	defer func() {
		if err := e.client.Close(); err != nil {
			e.log.WithField("error", err).Warn("failed-to-close-gateway-client")
		}
	}()

	if err := e.client.Start(ctx, e.dispatcher); err != nil {
		return &command.ConnectionError{Platform: e.client.Platform(), Err: err}
	}

	e.log.Info("engine-stopped")
	return nil
}

// NewClient builds the gateway client selected by config
func NewClient(config *Config, log logrus.FieldLogger) (gateway.Client, error) {
	switch config.Gateway {
	case GatewayDiscord:
		intents, err := gateway.ParseIntents(config.Discord.Intents)
		if err != nil {
			return nil, err
		}
		client, err := gateway.NewDiscord(gateway.DiscordOptions{
			Token:            config.Discord.Token,
			Intents:          intents,
			GuildID:          config.Discord.GuildID,
			DisableReconnect: config.Discord.DisableReconnect,
			Log:              log,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case GatewayTelegram:
		timeout, err := config.Telegram.pollTimeout()
		if err != nil {
			return nil, err
		}
		client, err := gateway.NewTelegram(gateway.TelegramOptions{
			Token:       config.Telegram.Token,
			PollTimeout: timeout,
			Log:         log,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown gateway %q", config.Gateway)
	}
}
