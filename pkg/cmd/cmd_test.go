package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(name string) Command {
	return Func(name, name+" command", func(context.Context, *Invocation) error { return nil })
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(noop("Ping")))

	c, ok := r.Get("ping")
	require.True(t, ok)
	assert.Equal(t, "Ping", c.Name())
	assert.Equal(t, 1, r.Len())

	_, ok = r.Get("pong")
	assert.False(t, ok)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(noop("help")))
	assert.Error(t, r.Register(noop("HELP")))
	assert.Error(t, r.Register(noop("  ")))
}

func TestRegistry_GetAllSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"stats", "help", "ping"} {
		require.NoError(t, r.Register(noop(n)))
	}

	var names []string
	for _, c := range r.GetAll() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"help", "ping", "stats"}, names)
}

func TestApply_Order(t *testing.T) {
	var trace []string
	mark := func(tag string) Middleware {
		return func(c Command) Command {
			return Wrap(c, func(ctx context.Context, inv *Invocation) error {
				trace = append(trace, tag)
				return c.Run(ctx, inv)
			})
		}
	}

	base := Func("x", "", func(context.Context, *Invocation) error {
		trace = append(trace, "run")
		return nil
	})
	c := Apply(base, mark("inner"), mark("outer"))

	require.NoError(t, c.Run(context.Background(), &Invocation{}))
	assert.Equal(t, []string{"outer", "inner", "run"}, trace)
	assert.Same(t, base, Root(c))
	assert.Equal(t, "x", c.Name())
}

func TestInvocation_Arg(t *testing.T) {
	inv := &Invocation{Args: []string{"a", "b"}}
	assert.Equal(t, "b", inv.Arg(1))
	assert.Empty(t, inv.Arg(2))
	assert.Empty(t, inv.Arg(-1))

	var nilInv *Invocation
	assert.Empty(t, nilInv.Arg(0))
}
