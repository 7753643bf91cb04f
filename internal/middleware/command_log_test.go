package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/command/commandtest"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

func newInvocation(args ...string) (*cmd.Invocation, *commandtest.Settings) {
	settings := commandtest.NewSettings()
	client := &commandtest.Client{Registry: command.NewRegistry(), Store: settings}
	cc, _ := commandtest.NewContext(client, &command.Descriptor{Name: "ping"})
	return &cmd.Invocation{Args: args, Data: cc}, settings
}

func TestWithUsageRecorder_RecordsSuccess(t *testing.T) {
	inv, settings := newInvocation("a", "b")
	c := cmd.Apply(cmd.Func("ping", "", func(context.Context, *cmd.Invocation) error { return nil }),
		WithUsageRecorder(), WithCommandLogger())

	require.NoError(t, c.Run(context.Background(), inv))
	require.Len(t, settings.Usages, 1)
	u := settings.Usages[0]
	assert.Equal(t, "ping", u.Command)
	assert.Equal(t, "a b", u.Args)
	assert.Equal(t, "g1", u.GuildID)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "alice", u.Username)
	assert.False(t, u.At.IsZero())
}

func TestWithUsageRecorder_SkipsFailure(t *testing.T) {
	inv, settings := newInvocation()
	boom := errors.New("boom")
	c := cmd.Apply(cmd.Func("ping", "", func(context.Context, *cmd.Invocation) error { return boom }),
		WithUsageRecorder(), WithCommandLogger())

	assert.ErrorIs(t, c.Run(context.Background(), inv), boom)
	assert.Empty(t, settings.Usages)
}

func TestMiddleware_ForeignPayload(t *testing.T) {
	ran := false
	c := cmd.Apply(cmd.Func("ping", "", func(context.Context, *cmd.Invocation) error {
		ran = true
		return nil
	}), WithUsageRecorder(), WithCommandLogger())

	require.NoError(t, c.Run(context.Background(), &cmd.Invocation{Data: "cli"}))
	assert.True(t, ran)
	assert.Equal(t, "ping", cmd.Root(c).Name())
}
