// Package command provides a gateway-agnostic command dispatch facade for chat bots.
//
// A bot is described by two kinds of handlers:
//
//   - Structured commands: named, schema-described invocations (slash commands and
//     context-menu actions) that are registered with the gateway, checked by the
//     Gate and dispatched by name.
//   - Responders: raw event handlers that see every inbound message and may answer
//     on their own, bypassing the Registry and the Gate.
//
// # Flow
//
//   gateway event -> Dispatcher.Dispatch -> Gate.Evaluate -> BeforeDispatch
//                 -> Command.Run -> reply -> AfterSuccess
//
//   gateway message -> Dispatcher.DispatchMessage -> every Responder
//
// Handler errors never leave the Dispatcher: they are logged through the hooks and
// turned into either silence or a generic failure reply.
//
// # Thread Safety
//
// The Registry is read-mostly and guarded by an RWMutex. The Gate predicate and the
// shared Data must be safe for concurrent use; Invocations are never shared between
// calls.
package command

import (
	"context"
	"time"
)

// Kind describes how a structured command is presented by the gateway
type Kind int

const (
	// KindSlash is a typed slash-style command
	KindSlash Kind = iota
	// KindMessageAction is invoked on a target message ("right click > Apps")
	KindMessageAction
)

func (k Kind) String() string {
	switch k {
	case KindSlash:
		return "slash"
	case KindMessageAction:
		return "message-action"
	default:
		return "unknown"
	}
}

// ParamType is the value type of a command parameter
type ParamType int

const (
	ParamString ParamType = iota
	ParamInteger
	ParamBoolean
	ParamUser    // value is a UserRef
	ParamMessage // value is a *Message; only valid on message actions
)

func (t ParamType) String() string {
	switch t {
	case ParamString:
		return "string"
	case ParamInteger:
		return "integer"
	case ParamBoolean:
		return "boolean"
	case ParamUser:
		return "user"
	case ParamMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Param describes one command parameter
type Param struct {
	Name        string
	Description string
	Type        ParamType
	Optional    bool
}

// RunFunc executes a structured command and returns the reply text.
// An empty reply sends nothing.
type RunFunc func(ctx context.Context, inv *Invocation) (string, error)

// HandlerKind tags the two dispatch paths
type HandlerKind int

const (
	HandlerStructured HandlerKind = iota
	HandlerRaw
)

// Handler is either a *Command or a *Responder
type Handler interface {
	Kind() HandlerKind
	HandlerName() string
}

// Command is a structured, registry-backed command
type Command struct {
	Name        string
	Description string
	Type        Kind
	// Label is the menu title of a message action; defaults to Name
	Label  string
	Params []Param
	Run    RunFunc
}

// Kind implements Handler
func (c *Command) Kind() HandlerKind { return HandlerStructured }

// HandlerName implements Handler
func (c *Command) HandlerName() string { return c.Name }

// TargetParam returns the name of the message parameter of a message action
func (c *Command) TargetParam() (string, bool) {
	for _, p := range c.Params {
		if p.Type == ParamMessage {
			return p.Name, true
		}
	}
	return "", false
}

// RespondFunc inspects a raw message and returns a reply, or "" for no reply
type RespondFunc func(ctx context.Context, msg *Message) (string, error)

// Responder is a raw message handler
type Responder struct {
	Name    string
	Respond RespondFunc
}

// Kind implements Handler
func (r *Responder) Kind() HandlerKind { return HandlerRaw }

// HandlerName implements Handler
func (r *Responder) HandlerName() string { return r.Name }

// User is the gateway's view of an account
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Message is an inbound chat message
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
}

// UserRef is a reference to a user passed as a command argument
type UserRef string

// UserDirectory is the gateway's user-info capability
type UserDirectory interface {
	LookupUser(ctx context.Context, userID string) (*User, error)
}

// ReplySink sends text back to where an invocation came from
type ReplySink interface {
	Reply(ctx context.Context, text string) error
}

// ReplyFunc adapts a function to ReplySink
type ReplyFunc func(ctx context.Context, text string) error

// Reply implements ReplySink
func (f ReplyFunc) Reply(ctx context.Context, text string) error { return f(ctx, text) }

// Data is the immutable context shared by every invocation of a running bot
type Data struct {
	Platform        string
	Users           UserDirectory
	TimestampLayout string
}

// Args maps parameter names to the values the gateway provided
type Args map[string]any

// String returns a string argument
func (a Args) String(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// Int returns an integer argument
func (a Args) Int(name string) (int64, bool) {
	v, ok := a[name].(int64)
	return v, ok
}

// Bool returns a boolean argument
func (a Args) Bool(name string) (bool, bool) {
	v, ok := a[name].(bool)
	return v, ok
}

// User returns a user argument
func (a Args) User(name string) (UserRef, bool) {
	v, ok := a[name].(UserRef)
	return v, ok && v != ""
}

// Message returns a message argument
func (a Args) Message(name string) (*Message, bool) {
	v, ok := a[name].(*Message)
	return v, ok && v != nil
}

// Invocation is one call of a structured command
type Invocation struct {
	ID        string
	Platform  string
	Command   string
	UserID    string
	ChannelID string
	Args      Args
	Data      *Data
	Reply     ReplySink
}
