package handlers

import "github.com/keepmind9/botkit/internal/command"

// Builtins returns the default handler set in display order.
// Help reads reg at run time, so it sees everything registered alongside it.
func Builtins(reg *command.Registry) []command.Handler {
	return []command.Handler{
		Age(),
		Pute(),
		Help(reg),
		Ping(),
	}
}
