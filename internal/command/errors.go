package command

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCommand is returned when a command definition is malformed
	ErrInvalidCommand = errors.New("invalid command")
	// ErrRegistryPublished is returned when registering after Publish
	ErrRegistryPublished = errors.New("registry already published")
)

// DuplicateNameError reports a second registration under a taken name
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("command %q is already registered", e.Name)
}

// CommandError is a per-invocation failure; it never leaves the Dispatcher
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// UpstreamError is a failed call to a gateway capability made by a handler
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StartupError is fatal: the process must exit
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed at %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// ConnectionError ends a run; restarting is left to the process supervisor
type ConnectionError struct {
	Platform string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection: %v", e.Platform, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
