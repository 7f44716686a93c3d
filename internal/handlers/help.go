package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/keepmind9/botkit/internal/command"
)

// Help lists the commands in reg, or describes a single one
func Help(reg *command.Registry) *command.Command {
	return &command.Command{
		Name:        "help",
		Description: "Shows the available commands",
		Params: []command.Param{
			{Name: "command", Description: "Command to describe", Type: command.ParamString, Optional: true},
		},
		Run: func(_ context.Context, inv *command.Invocation) (string, error) {
			if name, ok := inv.Args.String("command"); ok && name != "" {
				return describe(reg, strings.TrimPrefix(strings.TrimSpace(name), "/")), nil
			}
			return listCommands(reg), nil
		},
	}
}

func listCommands(reg *command.Registry) string {
	var sb strings.Builder
	sb.WriteString("Available commands:")
	for cmd := range reg.All() {
		sb.WriteString("\n")
		sb.WriteString(summary(cmd))
	}
	return sb.String()
}

func describe(reg *command.Registry, name string) string {
	cmd, ok := reg.Get(name)
	if !ok {
		return fmt.Sprintf("Unknown command %q", name)
	}

	var sb strings.Builder
	sb.WriteString(summary(cmd))
	for _, p := range cmd.Params {
		if p.Type == command.ParamMessage {
			continue
		}
		fmt.Fprintf(&sb, "\n  %s (%s", p.Name, p.Type)
		if p.Optional {
			sb.WriteString(", optional")
		}
		sb.WriteString(")")
		if p.Description != "" {
			sb.WriteString(": " + p.Description)
		}
	}
	return sb.String()
}

func summary(cmd *command.Command) string {
	if cmd.Type == command.KindMessageAction {
		label := cmd.Label
		if label == "" {
			label = cmd.Name
		}
		return fmt.Sprintf("%s - message action %q", cmd.Name, label)
	}
	if cmd.Description == "" {
		return "/" + cmd.Name
	}
	return fmt.Sprintf("/%s - %s", cmd.Name, cmd.Description)
}
