// Package gateway provides Gateway Client adapters for real-time chat platforms.
//
// An adapter owns the connection and translates platform events into command
// invocations and raw messages. It does not decide what runs: it hands events to an
// EventSink (normally a *command.Dispatcher) and sends back whatever the sink replies.
//
// # Supported Platforms
//
//   - Discord: WebSocket gateway, slash commands and message context-menu actions
//   - Telegram: Long polling, "/command" messages and reply-to targets
//
// # Usage
//
//   client, err := gateway.NewDiscord(gateway.DiscordOptions{Token: token, Intents: intents})
//   if err != nil {
//       log.Fatal(err)
//   }
//   if err := registry.Publish(ctx, client); err != nil {
//       log.Fatal(err)
//   }
//   err = client.Start(ctx, dispatcher) // blocks
//
// # Thread Safety
//
// Adapters may deliver events concurrently; the sink must be safe for concurrent use.
package gateway

import (
	"context"
	"errors"

	"github.com/keepmind9/botkit/internal/command"
)

var (
	// ErrUserInfoUnavailable is returned by platforms that cannot describe an account
	ErrUserInfoUnavailable = errors.New("user info unavailable on this platform")
	// ErrNotConnected is returned when an operation needs a live session
	ErrNotConnected = errors.New("gateway not connected")
)

// Client is the Gateway Client collaborator the command core depends on
type Client interface {
	command.Publisher
	command.UserDirectory

	// Platform returns the short platform name ("discord", "telegram")
	Platform() string

	// Start connects and delivers events to sink until ctx is done or the
	// connection fails. A nil return means a clean shutdown.
	Start(ctx context.Context, sink EventSink) error

	// Close releases the connection
	Close() error
}

// EventSink receives events from a Client
type EventSink interface {
	// Command returns the registered definition used to map arguments
	Command(name string) (*command.Command, bool)
	// Dispatch runs a structured invocation
	Dispatch(ctx context.Context, inv *command.Invocation) command.Outcome
	// DispatchMessage offers a raw message to every responder
	DispatchMessage(ctx context.Context, msg *command.Message, sink command.ReplySink)
}
