package core

import (
	"errors"
	"testing"
)

type fakeCommand struct {
	name  string
	group string
	runs  int
	err   error
}

func (c *fakeCommand) Name() string        { return c.name }
func (c *fakeCommand) Description() string { return "fake" }
func (c *fakeCommand) Group() string       { return c.group }
func (c *fakeCommand) Category() string    { return "Test" }
func (c *fakeCommand) RequireAdmin() bool  { return false }
func (c *fakeCommand) Run(ctx interface{}) error {
	c.runs++
	return c.err
}

func resetRegistry() {
	registry = map[string]Command{}
}

func TestRegistry(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	b := &fakeCommand{name: "beta"}
	a := &fakeCommand{name: "alpha"}
	RegisterCommand(b)
	RegisterCommand(a)

	got, ok := GetCommand("alpha")
	if !ok || got.Name() != "alpha" {
		t.Fatalf("GetCommand(alpha) = %v, %v", got, ok)
	}
	if _, ok := GetCommand("gamma"); ok {
		t.Error("GetCommand(gamma) ok = true, want false")
	}

	all := AllCommands()
	if len(all) != 2 || all[0].Name() != "alpha" || all[1].Name() != "beta" {
		t.Errorf("AllCommands() order = %v", names(all))
	}
}

func TestApplyMiddlewares(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	cmd := &fakeCommand{name: "work"}
	RegisterCommand(cmd)

	var trace []string
	mw := func(label string) Middleware {
		return func(next Command) Command {
			return &wrappedCommand{
				Command: next,
				wrap: func(ctx interface{}) error {
					trace = append(trace, label)
					return next.Run(ctx)
				},
			}
		}
	}

	// Last applied middleware runs first.
	ApplyMiddlewares(mw("inner"), mw("outer"))

	wrapped, _ := GetCommand("work")
	if err := wrapped.Run(nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(trace) != 2 || trace[0] != "outer" || trace[1] != "inner" {
		t.Errorf("trace = %v, want [outer inner]", trace)
	}
	if cmd.runs != 1 {
		t.Errorf("underlying runs = %d, want 1", cmd.runs)
	}

	// Metadata passes through the wrapper untouched.
	if wrapped.Name() != "work" || wrapped.Category() != "Test" {
		t.Error("wrapper must delegate metadata")
	}
}

func TestWrappedCommand_PropagatesError(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	boom := errors.New("boom")
	RegisterCommand(&fakeCommand{name: "bad", err: boom})
	ApplyMiddlewares(WithCommandLogger())

	cmd, _ := GetCommand("bad")
	if err := cmd.Run(nil); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want boom", err)
	}
}

func names(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Name()
	}
	return out
}
