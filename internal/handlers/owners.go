package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

type OwnersCommand struct{}

func (c *OwnersCommand) Name() string        { return "owners" }
func (c *OwnersCommand) Description() string { return "List, add or remove bot owners" }

func (c *OwnersCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := commandContext(inv)
	if err != nil {
		return err
	}
	settings := cc.Client.Settings()

	action := strings.ToLower(inv.Arg(0))
	switch action {
	case "", "list":
		owners := settings.Owners()
		if len(owners) == 0 {
			return cc.ReplyText(ctx, "No bot owners are set.")
		}
		lines := make([]string, len(owners))
		for i, id := range owners {
			lines[i] = fmt.Sprintf("• %s (`%s`)", mention(id), id)
		}
		return cc.Reply(ctx, command.Reply{Title: "Bot owners", Text: strings.Join(lines, "\n")})

	case "add", "del", "remove":
		id, ok := parseUserID(inv.Arg(1))
		if !ok {
			return cc.Reply(ctx, command.Reply{
				Text:  fmt.Sprintf("Usage: `%s%s %s <user>`", cc.Prefix, cc.Invoked, action),
				Error: true,
			})
		}
		if action == "add" {
			if err := settings.AddOwner(id); err != nil {
				return cc.Reply(ctx, command.Reply{Text: fmt.Sprintf("Could not add %s: %v.", mention(id), err), Error: true})
			}
			return cc.ReplyText(ctx, fmt.Sprintf("%s is now a bot owner.", mention(id)))
		}
		if err := settings.RemoveOwner(id); err != nil {
			return cc.Reply(ctx, command.Reply{Text: fmt.Sprintf("Could not remove %s: %v.", mention(id), err), Error: true})
		}
		return cc.ReplyText(ctx, fmt.Sprintf("%s is no longer a bot owner.", mention(id)))

	default:
		return cc.Reply(ctx, command.Reply{
			Text:  fmt.Sprintf("Unknown action `%s`. Use `list`, `add` or `del`.", action),
			Error: true,
		})
	}
}
