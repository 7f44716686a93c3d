package handlers

import (
	"context"
	"fmt"

	"github.com/keepmind9/botkit/internal/command"
)

// PutePrefix is prepended to the target message content
const PutePrefix = "SALE PUTE ! "

// Pute is a message action that echoes the target message behind PutePrefix
func Pute() *command.Command {
	return &command.Command{
		Name:  "pute",
		Label: "Pute",
		Type:  command.KindMessageAction,
		Params: []command.Param{
			{Name: "message", Type: command.ParamMessage},
		},
		Run: runPute,
	}
}

func runPute(_ context.Context, inv *command.Invocation) (string, error) {
	msg, ok := inv.Args.Message("message")
	if !ok {
		return "", fmt.Errorf("pute needs a target message")
	}
	return PutePrefix + msg.Content, nil
}
