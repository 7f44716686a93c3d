package command

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestGate_Evaluate_BlockList(t *testing.T) {
	g := NewGate(BlockUsers("123456789", "666"), nil, nil)

	tests := []struct {
		user string
		want Decision
	}{
		{"123456789", Deny},
		{"666", Deny},
		{"42", Allow},
		{"", Allow},
		{"1234567890", Allow},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Evaluate(&Invocation{UserID: tt.user}))
		})
	}
}

func TestGate_Evaluate_NilPredicateAllows(t *testing.T) {
	g := NewGate(nil, nil, nil)
	assert.Equal(t, Allow, g.Evaluate(&Invocation{UserID: "anyone"}))
}

func TestGate_Evaluate_PanickingPredicateDenies(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	g := NewGate(func(*Invocation) bool { panic("bad predicate") }, nil, log)

	assert.Equal(t, Deny, g.Evaluate(&Invocation{Command: "age"}))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestBlockUsers_IgnoresEmptyIDs(t *testing.T) {
	block := BlockUsers("", "7")
	assert.False(t, block(&Invocation{UserID: ""}))
	assert.True(t, block(&Invocation{UserID: "7"}))
}

func TestLogHooks_EmitsStartSuccessAndError(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	h := LogHooks{Log: log}
	inv := &Invocation{ID: "inv-1", Command: "age", UserID: "42", Platform: "discord"}

	h.BeforeDispatch(context.Background(), inv)
	h.AfterSuccess(context.Background(), inv)
	h.OnError(context.Background(), inv, errors.New("lookup failed"))

	entries := hook.AllEntries()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "executing-command", entries[0].Message)
		assert.Equal(t, logrus.InfoLevel, entries[0].Level)
		assert.Equal(t, "executed-command", entries[1].Message)
		assert.Equal(t, "command-failed", entries[2].Message)
		assert.Equal(t, logrus.ErrorLevel, entries[2].Level)
		assert.Equal(t, "age", entries[2].Data["command"])
		assert.Equal(t, "inv-1", entries[2].Data["invocation_id"])
	}
}

func TestGate_HookPanicsAreSwallowed(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	g := NewGate(nil, &spyHooks{panicOn: "after"}, log)

	assert.NotPanics(t, func() {
		g.AfterSuccess(context.Background(), &Invocation{Command: "age"})
	})
	assert.Equal(t, "dispatch-hook-failed", hook.LastEntry().Message)
	assert.Equal(t, "after-success", hook.LastEntry().Data["hook"])
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "deny", Deny.String())
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "message-action", KindMessageAction.String())
	assert.Equal(t, "user", ParamUser.String())
	assert.Equal(t, "replied", OutcomeReplied.String())
}

func TestErrors_Unwrap(t *testing.T) {
	base := errors.New("base")

	assert.ErrorIs(t, &CommandError{Command: "age", Err: base}, base)
	assert.ErrorIs(t, &UpstreamError{Op: "lookup", Err: base}, base)
	assert.ErrorIs(t, &StartupError{Stage: "publish", Err: base}, base)
	assert.ErrorIs(t, &ConnectionError{Platform: "discord", Err: base}, base)
	assert.Contains(t, (&DuplicateNameError{Name: "age"}).Error(), `"age"`)
}
