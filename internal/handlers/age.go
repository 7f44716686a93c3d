// Package handlers contains the bot's builtin commands and responders.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/keepmind9/botkit/internal/command"
)

// DefaultTimestampLayout is used when Data does not set one
const DefaultTimestampLayout = "2006-01-02"

var errNoUserDirectory = errors.New("no user directory configured")

// Age replies with the account creation date of the invoking or selected user
func Age() *command.Command {
	return &command.Command{
		Name:        "age",
		Description: "Displays your or another user's account creation date",
		Params: []command.Param{
			{Name: "user", Description: "Selected user", Type: command.ParamUser, Optional: true},
		},
		Run: runAge,
	}
}

func runAge(ctx context.Context, inv *command.Invocation) (string, error) {
	userID := inv.UserID
	if ref, ok := inv.Args.User("user"); ok {
		userID = string(ref)
	}

	if inv.Data == nil || inv.Data.Users == nil {
		return "", &command.UpstreamError{Op: "lookup user", Err: errNoUserDirectory}
	}
	u, err := inv.Data.Users.LookupUser(ctx, userID)
	if err != nil {
		return "", &command.UpstreamError{Op: "lookup user", Err: err}
	}

	layout := inv.Data.TimestampLayout
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	return fmt.Sprintf("%s's account was created at %s", u.Username, u.CreatedAt.Format(layout)), nil
}
