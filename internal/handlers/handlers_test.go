package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/command/commandtest"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

type env struct {
	client   *commandtest.Client
	settings *commandtest.Settings
	registry *command.Registry
}

func newEnv(t *testing.T) *env {
	t.Helper()
	registry := command.NewRegistry()
	for _, d := range []*command.Descriptor{
		{Name: "ping", Category: "Utility", Description: "Check bot latency", HandlerKey: "ping", Aliases: []string{"latence"}, Cooldown: 5 * time.Second},
		{Name: "help", Category: "Utility", HandlerKey: "help"},
		{Name: "prefix", Category: "Admin", HandlerKey: "prefix", Usage: "[new prefix]", Examples: []string{"prefix !"},
			UserPermissions: []string{"Administrator"}, Flags: command.Flags{GuildOnly: true}},
		{Name: "toggle", Category: "Admin", HandlerKey: "toggle", Flags: command.Flags{OwnerOnly: true}},
		{Name: "eval", Category: "Dev", HandlerKey: "reply", Flags: command.Flags{DeveloperOnly: true}},
	} {
		require.NoError(t, registry.Register(d, "/commands/"+d.Name+".yaml"))
	}
	settings := commandtest.NewSettings()
	return &env{
		client: &commandtest.Client{
			Registry: registry,
			Store:    settings,
			Ping:     42 * time.Millisecond,
		},
		settings: settings,
		registry: registry,
	}
}

func (e *env) run(t *testing.T, c cmd.Command, d *command.Descriptor, args ...string) (command.Reply, error) {
	t.Helper()
	cc, rep := commandtest.NewContext(e.client, d)
	err := c.Run(context.Background(), &cmd.Invocation{Args: args, Data: cc})
	last, _ := rep.Last()
	return last, err
}

func TestRegister(t *testing.T) {
	r := cmd.NewRegistry()
	require.NoError(t, Register(r))
	assert.Equal(t, len(All()), r.Len())
	for _, key := range []string{"ping", "help", "prefix", "owners", "toggle", "stats", "reply"} {
		_, ok := r.Get(key)
		assert.True(t, ok, key)
	}
	assert.Error(t, Register(r), "second registration collides")
}

func TestHandlers_RejectForeignPayload(t *testing.T) {
	for _, c := range All() {
		err := c.Run(context.Background(), &cmd.Invocation{Data: "cli"})
		assert.Error(t, err, c.Name())
	}
}

func TestPing(t *testing.T) {
	e := newEnv(t)
	reply, err := e.run(t, &PingCommand{}, &command.Descriptor{Name: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "🏓 Pong! Latency: `42ms`", reply.Text)
}

func TestHelp_Overview(t *testing.T) {
	e := newEnv(t)
	reply, err := e.run(t, &HelpCommand{}, &command.Descriptor{Name: "help"})
	require.NoError(t, err)

	require.Len(t, reply.Fields, 2, "developer-only category hidden")
	assert.Equal(t, "Admin (2)", reply.Fields[0].Name)
	assert.Equal(t, "`prefix`, `toggle`", reply.Fields[0].Value)
	assert.Equal(t, "Utility (2)", reply.Fields[1].Name)
	assert.Contains(t, reply.Text, "+help <command>")

	e.settings.Developers["u1"] = true
	reply, err = e.run(t, &HelpCommand{}, &command.Descriptor{Name: "help"})
	require.NoError(t, err)
	assert.Len(t, reply.Fields, 3)
}

func TestHelp_Details(t *testing.T) {
	e := newEnv(t)

	reply, err := e.run(t, &HelpCommand{}, &command.Descriptor{Name: "help"}, "latence")
	require.NoError(t, err)
	assert.Equal(t, "📖 +ping", reply.Title)
	assert.Equal(t, "Check bot latency", reply.Text)
	assert.Contains(t, reply.Fields, command.Field{Name: "Cooldown", Value: "5s", Inline: true})
	assert.Contains(t, reply.Fields, command.Field{Name: "Aliases", Value: "`latence`", Inline: true})

	reply, err = e.run(t, &HelpCommand{}, &command.Descriptor{Name: "help"}, "PREFIX")
	require.NoError(t, err)
	assert.Contains(t, reply.Fields, command.Field{Name: "Usage", Value: "`+prefix [new prefix]`"})
	assert.Contains(t, reply.Fields, command.Field{Name: "Examples", Value: "`+prefix !`"})
	assert.Contains(t, reply.Fields, command.Field{Name: "Required permissions", Value: "Administrator"})
	assert.Contains(t, reply.Fields, command.Field{Name: "Restrictions", Value: "servers only"})
}

func TestHelp_CategoryAndUnknown(t *testing.T) {
	e := newEnv(t)

	reply, err := e.run(t, &HelpCommand{}, &command.Descriptor{Name: "help"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "📖 Admin", reply.Title)
	assert.Contains(t, reply.Text, "`prefix` - No description.")

	reply, err = e.run(t, &HelpCommand{}, &command.Descriptor{Name: "help"}, "eval")
	require.NoError(t, err)
	assert.True(t, reply.Error, "developer-only command hidden from others")

	reply, err = e.run(t, &HelpCommand{}, &command.Descriptor{Name: "help"}, "nothing")
	require.NoError(t, err)
	assert.True(t, reply.Error)
	assert.Equal(t, "No command or category named `nothing`.", reply.Text)
}

func TestPrefix(t *testing.T) {
	e := newEnv(t)
	d := &command.Descriptor{Name: "prefix"}

	reply, err := e.run(t, &PrefixCommand{}, d)
	require.NoError(t, err)
	assert.Equal(t, "The prefix here is `+`.", reply.Text)

	reply, err = e.run(t, &PrefixCommand{}, d, "+")
	require.NoError(t, err)
	assert.Equal(t, "The prefix is already `+`.", reply.Text)

	reply, err = e.run(t, &PrefixCommand{}, d, "toolong")
	require.NoError(t, err)
	assert.True(t, reply.Error)
	assert.Equal(t, "+", e.settings.GetPrefix("g1"))

	reply, err = e.run(t, &PrefixCommand{}, d, "!")
	require.NoError(t, err)
	assert.Equal(t, "Prefix changed from `+` to `!`.", reply.Text)
	assert.Equal(t, "!", e.settings.GetPrefix("g1"))
}

func TestPrefix_DirectMessage(t *testing.T) {
	e := newEnv(t)
	cc, rep := commandtest.NewContext(e.client, &command.Descriptor{Name: "prefix"})
	cc.Message.GuildID = ""

	require.NoError(t, (&PrefixCommand{}).Run(context.Background(), &cmd.Invocation{Args: []string{"!"}, Data: cc}))
	last, _ := rep.Last()
	assert.True(t, last.Error)
}

func TestOwners(t *testing.T) {
	e := newEnv(t)
	d := &command.Descriptor{Name: "owners"}
	c := &OwnersCommand{}

	reply, err := e.run(t, c, d)
	require.NoError(t, err)
	assert.Equal(t, "No bot owners are set.", reply.Text)

	reply, err = e.run(t, c, d, "add", "<@!123>")
	require.NoError(t, err)
	assert.Equal(t, "<@123> is now a bot owner.", reply.Text)
	assert.True(t, e.settings.IsOwner("123"))

	reply, err = e.run(t, c, d, "add", "123")
	require.NoError(t, err)
	assert.True(t, reply.Error)

	reply, err = e.run(t, c, d, "list")
	require.NoError(t, err)
	assert.Equal(t, "• <@123> (`123`)", reply.Text)

	reply, err = e.run(t, c, d, "del", "<@123>")
	require.NoError(t, err)
	assert.Equal(t, "<@123> is no longer a bot owner.", reply.Text)
	assert.False(t, e.settings.IsOwner("123"))

	reply, err = e.run(t, c, d, "add", "bob")
	require.NoError(t, err)
	assert.Equal(t, "Usage: `+owners add <user>`", reply.Text)

	reply, err = e.run(t, c, d, "promote")
	require.NoError(t, err)
	assert.True(t, reply.Error)
}

func TestToggle(t *testing.T) {
	e := newEnv(t)
	d := &command.Descriptor{Name: "toggle"}
	c := &ToggleCommand{}

	reply, err := e.run(t, c, d, "latence")
	require.NoError(t, err)
	assert.Equal(t, "Command `ping` disabled.", reply.Text)
	assert.Equal(t, []string{"ping"}, e.settings.DisabledCommands())

	reply, err = e.run(t, c, d)
	require.NoError(t, err)
	assert.Equal(t, "Disabled commands: `ping`", reply.Text)

	reply, err = e.run(t, c, d, "ping")
	require.NoError(t, err)
	assert.Equal(t, "Command `ping` enabled.", reply.Text)
	assert.Empty(t, e.settings.DisabledCommands())

	reply, err = e.run(t, c, d, "toggle")
	require.NoError(t, err)
	assert.True(t, reply.Error)

	reply, err = e.run(t, c, d, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "Unknown command `ghost`.", reply.Text)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e.client.Counters = command.Stats{
		StartedAt:        start,
		MessagesReceived: 12,
		CommandsUsed:     3,
		LastCommandAt:    start.Add(time.Hour),
	}
	c := &StatsCommand{Now: func() time.Time { return start.Add(26*time.Hour + 5*time.Second) }}

	reply, err := e.run(t, c, &command.Descriptor{Name: "stats"})
	require.NoError(t, err)
	values := map[string]string{}
	for _, f := range reply.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "1d 2h 0m 5s", values["Uptime"])
	assert.Equal(t, "42ms", values["Latency"])
	assert.Equal(t, "5 in 3 categories", values["Commands loaded"])
	assert.Equal(t, "12", values["Messages received"])
	assert.Equal(t, "3", values["Commands used"])
	assert.Equal(t, "2026-03-01 11:00:00", values["Last command"])

	e.client.Counters.LastCommandAt = time.Time{}
	reply, err = e.run(t, c, &command.Descriptor{Name: "stats"})
	require.NoError(t, err)
	assert.Equal(t, "never", reply.Fields[len(reply.Fields)-1].Value)
}

func TestReply(t *testing.T) {
	e := newEnv(t)
	d := &command.Descriptor{Name: "hello", Reply: "Hi {user}! You said: {args} (prefix {prefix})"}

	reply, err := e.run(t, &ReplyCommand{}, d, "good", "morning")
	require.NoError(t, err)
	assert.Equal(t, "Hi <@u1>! You said: good morning (prefix +)", reply.Text)

	_, err = e.run(t, &ReplyCommand{}, &command.Descriptor{Name: "empty"})
	assert.Error(t, err)
}
