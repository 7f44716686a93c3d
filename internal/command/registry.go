package command

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"sync"

	"github.com/keepmind9/botkit/pkg/constants"
)

var commandNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Publisher pushes the full command set to a gateway, replacing what was there
type Publisher interface {
	PublishCommands(ctx context.Context, cmds []*Command) error
}

// Registry holds structured commands in registration order
type Registry struct {
	mu        sync.RWMutex
	commands  []*Command
	index     map[string]*Command
	published bool
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Command)}
}

// Register adds a command. A taken name returns *DuplicateNameError and keeps
// the original entry, even when cmd itself is malformed.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrInvalidCommand)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.published {
		return fmt.Errorf("register %s: %w", cmd.Name, ErrRegistryPublished)
	}
	if _, exists := r.index[cmd.Name]; exists {
		return &DuplicateNameError{Name: cmd.Name}
	}
	if err := validateCommand(cmd); err != nil {
		return err
	}

	r.commands = append(r.commands, cmd)
	r.index[cmd.Name] = cmd
	return nil
}

// Get returns the command registered under name
func (r *Registry) Get(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.index[name]
	return cmd, ok
}

// All yields the registered commands in insertion order
func (r *Registry) All() iter.Seq[*Command] {
	return func(yield func(*Command) bool) {
		for _, cmd := range r.snapshot() {
			if !yield(cmd) {
				return
			}
		}
	}
}

// Len returns the number of registered commands
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Publish pushes every command to the gateway in one bulk replace. After the first
// successful publish the registry is sealed; publishing again overwrites the
// gateway's set with the same commands.
func (r *Registry) Publish(ctx context.Context, p Publisher) error {
	cmds := r.snapshot()
	if err := p.PublishCommands(ctx, cmds); err != nil {
		return fmt.Errorf("failed to publish %d commands: %w", len(cmds), err)
	}

	r.mu.Lock()
	r.published = true
	r.mu.Unlock()
	return nil
}

func (r *Registry) snapshot() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, len(r.commands))
	copy(out, r.commands)
	return out
}

func validateCommand(cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrInvalidCommand)
	}
	if len(cmd.Name) == 0 || len(cmd.Name) > constants.MaxCommandNameLength || !commandNamePattern.MatchString(cmd.Name) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidCommand, cmd.Name)
	}
	if cmd.Run == nil {
		return fmt.Errorf("%w: %s has no Run function", ErrInvalidCommand, cmd.Name)
	}
	if len(cmd.Description) > constants.MaxCommandDescriptionLength {
		return fmt.Errorf("%w: %s description exceeds %d characters", ErrInvalidCommand, cmd.Name, constants.MaxCommandDescriptionLength)
	}

	seen := make(map[string]struct{}, len(cmd.Params))
	messageParams := 0
	for _, p := range cmd.Params {
		if p.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed parameter", ErrInvalidCommand, cmd.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %s declares parameter %q twice", ErrInvalidCommand, cmd.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Type == ParamMessage {
			messageParams++
		}
	}

	switch cmd.Type {
	case KindSlash:
		if messageParams > 0 {
			return fmt.Errorf("%w: slash command %s cannot take a message parameter", ErrInvalidCommand, cmd.Name)
		}
	case KindMessageAction:
		if messageParams != 1 || len(cmd.Params) != 1 {
			return fmt.Errorf("%w: message action %s must take exactly one message parameter", ErrInvalidCommand, cmd.Name)
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %d", ErrInvalidCommand, cmd.Name, cmd.Type)
	}

	return nil
}
