package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

// ReplyCommand sends the descriptor's static reply text. The placeholders
// {user}, {prefix} and {args} are expanded.
type ReplyCommand struct{}

func (c *ReplyCommand) Name() string        { return "reply" }
func (c *ReplyCommand) Description() string { return "Send the text configured in the descriptor" }

func (c *ReplyCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := commandContext(inv)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cc.Descriptor.Reply) == "" {
		return fmt.Errorf("command %s has no reply text", cc.Descriptor.Name)
	}

	text := strings.NewReplacer(
		"{user}", mention(cc.Message.AuthorID),
		"{prefix}", cc.Prefix,
		"{args}", strings.Join(inv.Args, " "),
	).Replace(cc.Descriptor.Reply)
	return cc.ReplyText(ctx, text)
}
