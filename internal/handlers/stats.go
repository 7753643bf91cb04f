package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/util"
)

type StatsCommand struct {
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (c *StatsCommand) Name() string        { return "stats" }
func (c *StatsCommand) Description() string { return "Show uptime and usage counters" }

func (c *StatsCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := commandContext(inv)
	if err != nil {
		return err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	stats := cc.Client.Stats()
	registry := cc.Client.Commands()

	last := util.FormatDateTpl(stats.LastCommandAt, "YYYY-MM-DD hh:mm:ss")
	if last == "" {
		last = "never"
	}

	return cc.Reply(ctx, command.Reply{
		Title: "📊 Bot statistics",
		Fields: []command.Field{
			{Name: "Uptime", Value: util.FormatDuration(now().Sub(stats.StartedAt)), Inline: true},
			{Name: "Latency", Value: fmt.Sprintf("%dms", cc.Client.Latency().Milliseconds()), Inline: true},
			{Name: "Commands loaded", Value: fmt.Sprintf("%d in %d categories", registry.Len(), len(registry.Categories())), Inline: true},
			{Name: "Messages received", Value: fmt.Sprintf("%d", stats.MessagesReceived), Inline: true},
			{Name: "Commands used", Value: fmt.Sprintf("%d", stats.CommandsUsed), Inline: true},
			{Name: "Last command", Value: last, Inline: true},
		},
	})
}
