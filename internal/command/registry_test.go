package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okRun(reply string) RunFunc {
	return func(ctx context.Context, inv *Invocation) (string, error) {
		return reply, nil
	}
}

func names(r *Registry) []string {
	var out []string
	for cmd := range r.All() {
		out = append(out, cmd.Name)
	}
	return out
}

type recordingPublisher struct {
	calls [][]*Command
	err   error
}

func (p *recordingPublisher) PublishCommands(ctx context.Context, cmds []*Command) error {
	p.calls = append(p.calls, cmds)
	return p.err
}

func TestRegistry_Register_PreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "age", "help"} {
		require.NoError(t, r.Register(&Command{Name: name, Run: okRun(name)}))
	}

	assert.Equal(t, []string{"zeta", "age", "help"}, names(r))
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_Register_DuplicateKeepsOriginal(t *testing.T) {
	r := NewRegistry()
	original := &Command{Name: "age", Description: "original", Run: okRun("a")}
	require.NoError(t, r.Register(original))

	err := r.Register(&Command{Name: "age", Description: "impostor", Run: okRun("b")})

	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "age", dup.Name)

	got, ok := r.Get("age")
	require.True(t, ok)
	assert.Same(t, original, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Register_EveryNameExactlyOnce(t *testing.T) {
	r := NewRegistry()
	input := []string{"a", "b", "a", "c", "b", "d"}
	for _, name := range input {
		_ = r.Register(&Command{Name: name, Run: okRun(name)})
	}

	got := names(r)
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	for _, name := range input {
		count := 0
		for _, n := range got {
			if n == name {
				count++
			}
		}
		assert.Equal(t, 1, count, "name %s", name)
	}
}

func TestRegistry_Register_DuplicateReportedBeforeValidation(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Command{Name: "age", Run: okRun("a")}))

	err := r.Register(&Command{Name: "age"})

	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.NotErrorIs(t, err, ErrInvalidCommand)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Register_Validation(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
	}{
		{"nil command", nil},
		{"empty name", &Command{Run: okRun("")}},
		{"uppercase name", &Command{Name: "Age", Run: okRun("")}},
		{"name with space", &Command{Name: "my cmd", Run: okRun("")}},
		{"name with hyphen", &Command{Name: "my-cmd", Run: okRun("")}},
		{"no run func", &Command{Name: "age"}},
		{"duplicate param", &Command{Name: "age", Run: okRun(""), Params: []Param{{Name: "u"}, {Name: "u"}}}},
		{"unnamed param", &Command{Name: "age", Run: okRun(""), Params: []Param{{Type: ParamUser}}}},
		{"slash with message param", &Command{Name: "age", Run: okRun(""), Params: []Param{{Name: "m", Type: ParamMessage}}}},
		{"message action without target", &Command{Name: "pute", Type: KindMessageAction, Run: okRun("")}},
		{"message action with extra param", &Command{Name: "pute", Type: KindMessageAction, Run: okRun(""), Params: []Param{
			{Name: "m", Type: ParamMessage},
			{Name: "s", Type: ParamString},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register(tt.cmd)
			assert.ErrorIs(t, err, ErrInvalidCommand)
			assert.Equal(t, 0, r.Len())
		})
	}
}

func TestRegistry_All_StopsEarly(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, r.Register(&Command{Name: name, Run: okRun(name)}))
	}

	var seen []string
	for cmd := range r.All() {
		seen = append(seen, cmd.Name)
		if cmd.Name == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestRegistry_Publish_BulkReplaceAndSeal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Command{Name: "age", Run: okRun("")}))
	require.NoError(t, r.Register(&Command{Name: "help", Run: okRun("")}))

	p := &recordingPublisher{}
	require.NoError(t, r.Publish(context.Background(), p))
	require.NoError(t, r.Publish(context.Background(), p))

	require.Len(t, p.calls, 2)
	for _, call := range p.calls {
		var got []string
		for _, c := range call {
			got = append(got, c.Name)
		}
		assert.Equal(t, []string{"age", "help"}, got)
	}

	err := r.Register(&Command{Name: "late", Run: okRun("")})
	assert.ErrorIs(t, err, ErrRegistryPublished)
}

func TestRegistry_Publish_FailureIsReturnedAndLeavesRegistryOpen(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Command{Name: "age", Run: okRun("")}))

	authErr := errors.New("401 unauthorized")
	err := r.Publish(context.Background(), &recordingPublisher{err: authErr})

	assert.ErrorIs(t, err, authErr)
	assert.NoError(t, r.Register(&Command{Name: "help", Run: okRun("")}))
}

func TestCommand_TargetParam(t *testing.T) {
	cmd := &Command{Name: "pute", Type: KindMessageAction, Params: []Param{{Name: "message", Type: ParamMessage}}}
	name, ok := cmd.TargetParam()
	assert.True(t, ok)
	assert.Equal(t, "message", name)

	_, ok = (&Command{Name: "age"}).TargetParam()
	assert.False(t, ok)
}
