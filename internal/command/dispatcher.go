package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultFailureReply is sent to the invoking user when a command fails
const DefaultFailureReply = "Something went wrong while running this command."

// Outcome reports what happened to one structured invocation
type Outcome int

const (
	OutcomeUnknown Outcome = iota // no such command
	OutcomeDenied                 // rejected by the Gate
	OutcomeReplied                // handler succeeded and its reply was sent
	OutcomeSilent                 // handler succeeded with an empty reply
	OutcomeFailed                 // handler or reply failed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeDenied:
		return "denied"
	case OutcomeReplied:
		return "replied"
	case OutcomeSilent:
		return "silent"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DispatcherOptions configures a Dispatcher
type DispatcherOptions struct {
	// Data is attached to every invocation that has none
	Data *Data
	// FailureReply is sent when a handler fails; empty means DefaultFailureReply
	FailureReply string
	// SilentErrors suppresses the failure reply
	SilentErrors bool
	Log          logrus.FieldLogger
}

// Dispatcher routes structured invocations through the Gate and raw messages to
// every Responder
type Dispatcher struct {
	registry     *Registry
	gate         *Gate
	data         *Data
	failureReply string
	log          logrus.FieldLogger

	mu         sync.RWMutex
	responders []*Responder
}

// NewDispatcher creates a dispatcher over registry and gate
func NewDispatcher(registry *Registry, gate *Gate, opts DispatcherOptions) *Dispatcher {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if gate == nil {
		gate = NewGate(nil, nil, opts.Log)
	}
	if opts.Data == nil {
		opts.Data = &Data{}
	}

	failureReply := opts.FailureReply
	if failureReply == "" {
		failureReply = DefaultFailureReply
	}
	if opts.SilentErrors {
		failureReply = ""
	}

	return &Dispatcher{
		registry:     registry,
		gate:         gate,
		data:         opts.Data,
		failureReply: failureReply,
		log:          opts.Log,
	}
}

// Add registers handlers on the path matching their kind
func (d *Dispatcher) Add(handlers ...Handler) error {
	for _, h := range handlers {
		switch v := h.(type) {
		case *Command:
			if err := d.registry.Register(v); err != nil {
				return err
			}
		case *Responder:
			if v == nil || v.Respond == nil {
				return fmt.Errorf("%w: responder without Respond function", ErrInvalidCommand)
			}
			d.mu.Lock()
			d.responders = append(d.responders, v)
			d.mu.Unlock()
		default:
			return fmt.Errorf("%w: unsupported handler %T", ErrInvalidCommand, h)
		}
	}
	return nil
}

// Registry returns the underlying registry
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Command looks up a registered command by name
func (d *Dispatcher) Command(name string) (*Command, bool) {
	return d.registry.Get(name)
}

// Dispatch runs one structured invocation. It never panics and never returns a
// handler error: failures are reported through the hooks.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *Invocation) Outcome {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Data == nil {
		inv.Data = d.data
	}
	if inv.Args == nil {
		inv.Args = Args{}
	}

	cmd, ok := d.registry.Get(inv.Command)
	if !ok {
		d.log.WithFields(logrus.Fields{
			"command":       inv.Command,
			"invocation_id": inv.ID,
			"user":          inv.UserID,
		}).Warn("unknown-command")
		return OutcomeUnknown
	}

	if d.gate.Evaluate(inv) == Deny {
		d.log.WithFields(logrus.Fields{
			"command":       inv.Command,
			"invocation_id": inv.ID,
			"user":          inv.UserID,
		}).Info("command-blocked")
		return OutcomeDenied
	}

	d.gate.BeforeDispatch(ctx, inv)

	reply, err := runCommand(ctx, cmd, inv)
	if err != nil {
		d.fail(ctx, inv, err)
		return OutcomeFailed
	}

	outcome := OutcomeSilent
	if reply != "" {
		if err := d.send(ctx, inv.Reply, reply); err != nil {
			d.fail(ctx, inv, &CommandError{Command: cmd.Name, Err: fmt.Errorf("failed to send reply: %w", err)})
			return OutcomeFailed
		}
		outcome = OutcomeReplied
	}

	d.gate.AfterSuccess(ctx, inv)
	return outcome
}

// DispatchMessage hands a raw message to every responder. Replies go to sink.
func (d *Dispatcher) DispatchMessage(ctx context.Context, msg *Message, sink ReplySink) {
	d.mu.RLock()
	responders := make([]*Responder, len(d.responders))
	copy(responders, d.responders)
	d.mu.RUnlock()

	for _, r := range responders {
		reply, err := runResponder(ctx, r, msg)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"responder": r.Name,
				"channel":   msg.ChannelID,
				"error":     err,
			}).Error("responder-failed")
			continue
		}
		if reply == "" {
			continue
		}
		if err := d.send(ctx, sink, reply); err != nil {
			d.log.WithFields(logrus.Fields{
				"responder": r.Name,
				"channel":   msg.ChannelID,
				"error":     err,
			}).Error("failed-to-send-responder-reply")
		}
	}
}

func (d *Dispatcher) fail(ctx context.Context, inv *Invocation, err error) {
	d.gate.OnError(ctx, inv, err)
	if d.failureReply == "" {
		return
	}
	if sendErr := d.send(ctx, inv.Reply, d.failureReply); sendErr != nil {
		d.log.WithFields(logrus.Fields{
			"command":       inv.Command,
			"invocation_id": inv.ID,
			"error":         sendErr,
		}).Warn("failed-to-send-failure-reply")
	}
}

func (d *Dispatcher) send(ctx context.Context, sink ReplySink, text string) error {
	if sink == nil {
		return errors.New("no reply sink")
	}
	return sink.Reply(ctx, text)
}

func runCommand(ctx context.Context, cmd *Command, inv *Invocation) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CommandError{Command: cmd.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	reply, err = cmd.Run(ctx, inv)
	if err != nil {
		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) {
			err = &CommandError{Command: cmd.Name, Err: err}
		}
		return "", err
	}
	return reply, nil
}

func runResponder(ctx context.Context, r *Responder, msg *Message) (reply string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.Respond(ctx, msg)
}
