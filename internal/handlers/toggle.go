package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

type ToggleCommand struct{}

func (c *ToggleCommand) Name() string        { return "toggle" }
func (c *ToggleCommand) Description() string { return "Enable or disable a command for the whole bot" }

func (c *ToggleCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := commandContext(inv)
	if err != nil {
		return err
	}
	settings := cc.Client.Settings()

	target := inv.Arg(0)
	if target == "" {
		disabled := settings.DisabledCommands()
		if len(disabled) == 0 {
			return cc.ReplyText(ctx, "No commands are disabled.")
		}
		return cc.ReplyText(ctx, "Disabled commands: `"+strings.Join(disabled, "`, `")+"`")
	}

	d, ok := cc.Client.Commands().Resolve(target)
	if !ok {
		return cc.Reply(ctx, command.Reply{Text: fmt.Sprintf("Unknown command `%s`.", target), Error: true})
	}
	// the toggle command must stay reachable
	if d.HandlerKey == c.Name() {
		return cc.Reply(ctx, command.Reply{Text: fmt.Sprintf("You can't disable `%s`.", d.Name), Error: true})
	}

	if slices.Contains(settings.DisabledCommands(), d.Name) {
		if err := settings.EnableCommand(d.Name); err != nil {
			return err
		}
		return cc.ReplyText(ctx, fmt.Sprintf("Command `%s` enabled.", d.Name))
	}
	if err := settings.DisableCommand(d.Name); err != nil {
		return err
	}
	return cc.ReplyText(ctx, fmt.Sprintf("Command `%s` disabled.", d.Name))
}
