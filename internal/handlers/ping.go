package handlers

import (
	"context"
	"fmt"

	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

type PingCommand struct{}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check bot latency" }

func (c *PingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := commandContext(inv)
	if err != nil {
		return err
	}
	latency := cc.Client.Latency().Milliseconds()
	return cc.ReplyText(ctx, fmt.Sprintf("🏓 Pong! Latency: `%dms`", latency))
}
