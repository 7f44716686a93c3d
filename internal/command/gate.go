package command

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Decision is the result of evaluating an invocation
type Decision int

const (
	Allow Decision = iota
	Deny
)

func (d Decision) String() string {
	if d == Deny {
		return "deny"
	}
	return "allow"
}

// BlockPredicate reports whether an invocation must be rejected.
// It runs on every invocation and must not block or mutate shared state.
type BlockPredicate func(inv *Invocation) bool

// BlockUsers returns a predicate rejecting the given invoking user IDs
func BlockUsers(userIDs ...string) BlockPredicate {
	blocked := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			blocked[id] = struct{}{}
		}
	}
	return func(inv *Invocation) bool {
		_, ok := blocked[inv.UserID]
		return ok
	}
}

// Hooks observe allowed invocations. Implementations must be safe for concurrent use.
type Hooks interface {
	// BeforeDispatch runs before every allowed handler call
	BeforeDispatch(ctx context.Context, inv *Invocation)
	// AfterSuccess runs only when the handler and its reply succeeded
	AfterSuccess(ctx context.Context, inv *Invocation)
	// OnError runs when the handler or its reply failed
	OnError(ctx context.Context, inv *Invocation, err error)
}

// NopHooks does nothing
type NopHooks struct{}

func (NopHooks) BeforeDispatch(context.Context, *Invocation) {}
func (NopHooks) AfterSuccess(context.Context, *Invocation) {}
func (NopHooks) OnError(context.Context, *Invocation, error) {}

// LogHooks logs command execution the way operators read it
type LogHooks struct {
	Log logrus.FieldLogger
}

func (h LogHooks) fields(inv *Invocation) logrus.Fields {
	return logrus.Fields{
		"command":       inv.Command,
		"invocation_id": inv.ID,
		"platform":      inv.Platform,
		"user":          inv.UserID,
		"channel":       inv.ChannelID,
	}
}

// BeforeDispatch implements Hooks
func (h LogHooks) BeforeDispatch(_ context.Context, inv *Invocation) {
	h.Log.WithFields(h.fields(inv)).Info("executing-command")
}

// AfterSuccess implements Hooks
func (h LogHooks) AfterSuccess(_ context.Context, inv *Invocation) {
	h.Log.WithFields(h.fields(inv)).Info("executed-command")
}

// OnError implements Hooks
func (h LogHooks) OnError(_ context.Context, inv *Invocation, err error) {
	h.Log.WithFields(h.fields(inv)).WithError(err).Error("command-failed")
}

// Gate decides whether an invocation may run and wraps the observability hooks
type Gate struct {
	block BlockPredicate
	hooks Hooks
	log   logrus.FieldLogger
}

// NewGate builds a gate. A nil predicate allows everything, nil hooks log
// through log. Pass NopHooks to silence handler failures.
func NewGate(block BlockPredicate, hooks Hooks, log logrus.FieldLogger) *Gate {
	if block == nil {
		block = func(*Invocation) bool { return false }
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if hooks == nil {
		hooks = LogHooks{Log: log}
	}
	return &Gate{block: block, hooks: hooks, log: log}
}

// Evaluate checks the block predicate. A panicking predicate denies.
func (g *Gate) Evaluate(inv *Invocation) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			g.log.WithFields(logrus.Fields{
				"command": inv.Command,
				"panic":   r,
			}).Error("block-predicate-panic-recovered")
			decision = Deny
		}
	}()
	if g.block(inv) {
		return Deny
	}
	return Allow
}

// BeforeDispatch runs the before hook; hook failures are logged and swallowed
func (g *Gate) BeforeDispatch(ctx context.Context, inv *Invocation) {
	g.safely("before-dispatch", inv, func() { g.hooks.BeforeDispatch(ctx, inv) })
}

// AfterSuccess runs the success hook
func (g *Gate) AfterSuccess(ctx context.Context, inv *Invocation) {
	g.safely("after-success", inv, func() { g.hooks.AfterSuccess(ctx, inv) })
}

// OnError runs the error hook
func (g *Gate) OnError(ctx context.Context, inv *Invocation, err error) {
	g.safely("on-error", inv, func() { g.hooks.OnError(ctx, inv, err) })
}

func (g *Gate) safely(hook string, inv *Invocation, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.log.WithFields(logrus.Fields{
				"hook":    hook,
				"command": inv.Command,
				"error":   fmt.Sprint(r),
			}).Warn("dispatch-hook-failed")
		}
	}()
	fn()
}
