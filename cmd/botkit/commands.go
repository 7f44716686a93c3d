package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/keepmind9/botkit/internal/command"
	"github.com/keepmind9/botkit/internal/handlers"
	"github.com/spf13/cobra"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the builtin commands",
	Long:  "List the commands published to the gateway, in registry order, and the raw message responders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listBuiltins(cmd.OutOrStdout())
	},
}

func listBuiltins(w io.Writer) error {
	registry := command.NewRegistry()
	var responders []*command.Responder
	for _, h := range handlers.Builtins(registry) {
		switch v := h.(type) {
		case *command.Command:
			if err := registry.Register(v); err != nil {
				return err
			}
		case *command.Responder:
			responders = append(responders, v)
		}
	}

	fmt.Fprintf(w, "Commands (%d):\n", registry.Len())
	for cmd := range registry.All() {
		fmt.Fprintf(w, "  %-6s %-15s %s\n", cmd.Name, cmd.Type, describeParams(cmd))
	}
	fmt.Fprintf(w, "\nResponders (%d):\n", len(responders))
	for _, r := range responders {
		fmt.Fprintf(w, "  %s\n", r.Name)
	}
	return nil
}

func describeParams(cmd *command.Command) string {
	if len(cmd.Params) == 0 {
		return cmd.Description
	}
	params := make([]string, 0, len(cmd.Params))
	for _, p := range cmd.Params {
		s := p.Name + ":" + p.Type.String()
		if p.Optional {
			s += "?"
		}
		params = append(params, s)
	}
	if cmd.Description == "" {
		return "[" + strings.Join(params, " ") + "]"
	}
	return cmd.Description + " [" + strings.Join(params, " ") + "]"
}
