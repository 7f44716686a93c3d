package handlers

import (
	"context"

	"github.com/keepmind9/botkit/internal/command"
)

const (
	pingTrigger = "!ping"
	pingReply   = "Pong!"
)

// Ping answers an exact "!ping" message with "Pong!"
func Ping() *command.Responder {
	return &command.Responder{
		Name: "ping",
		Respond: func(_ context.Context, msg *command.Message) (string, error) {
			if msg.Content != pingTrigger {
				return "", nil
			}
			return pingReply, nil
		},
	}
}
