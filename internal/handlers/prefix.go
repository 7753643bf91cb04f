package handlers

import (
	"context"
	"fmt"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

type PrefixCommand struct{}

func (c *PrefixCommand) Name() string        { return "prefix" }
func (c *PrefixCommand) Description() string { return "Show or change the server prefix" }

func (c *PrefixCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := commandContext(inv)
	if err != nil {
		return err
	}
	settings := cc.Client.Settings()
	current := settings.GetPrefix(cc.Message.GuildID)

	next := inv.Arg(0)
	if next == "" {
		return cc.ReplyText(ctx, fmt.Sprintf("The prefix here is `%s`.", current))
	}
	if !cc.Message.InGuild() {
		return cc.Reply(ctx, command.Reply{Text: "The prefix can only be changed in a server.", Error: true})
	}
	if next == current {
		return cc.ReplyText(ctx, fmt.Sprintf("The prefix is already `%s`.", current))
	}
	if err := settings.SetPrefix(cc.Message.GuildID, next); err != nil {
		return cc.Reply(ctx, command.Reply{Text: fmt.Sprintf("Could not set the prefix: %v.", err), Error: true})
	}
	return cc.ReplyText(ctx, fmt.Sprintf("Prefix changed from `%s` to `%s`.", current, next))
}
