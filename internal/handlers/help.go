package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/perm"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "List commands or show details for one" }

func (c *HelpCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := commandContext(inv)
	if err != nil {
		return err
	}
	registry := cc.Client.Commands()
	developer := cc.Client.Settings().IsDeveloper(cc.Message.AuthorID)

	query := inv.Arg(0)
	if query == "" {
		return cc.Reply(ctx, overview(registry, cc.Prefix, developer))
	}
	if d, ok := registry.Resolve(query); ok && (developer || !d.Flags.DeveloperOnly) {
		return cc.Reply(ctx, details(d, cc.Prefix))
	}
	if list := visible(registry.ByCategory(query), developer); len(list) > 0 {
		return cc.Reply(ctx, command.Reply{
			Title: fmt.Sprintf("📖 %s", list[0].Category),
			Text:  commandLines(list),
		})
	}
	return cc.Reply(ctx, command.Reply{
		Text:  fmt.Sprintf("No command or category named `%s`.", query),
		Error: true,
	})
}

func overview(registry *command.Registry, prefix string, developer bool) command.Reply {
	reply := command.Reply{
		Title: "📖 Available Commands",
		Text:  fmt.Sprintf("Use `%shelp <command>` for details.", prefix),
	}
	for _, category := range registry.Categories() {
		list := visible(registry.ByCategory(category), developer)
		if len(list) == 0 {
			continue
		}
		names := make([]string, len(list))
		for i, d := range list {
			names[i] = "`" + d.Name + "`"
		}
		reply.Fields = append(reply.Fields, command.Field{
			Name:  fmt.Sprintf("%s (%d)", category, len(list)),
			Value: strings.Join(names, ", "),
		})
	}
	if len(reply.Fields) == 0 {
		reply.Text = "No commands are loaded."
	}
	return reply
}

func details(d *command.Descriptor, prefix string) command.Reply {
	description := d.Description
	if description == "" {
		description = "No description."
	}
	reply := command.Reply{
		Title: fmt.Sprintf("📖 %s%s", prefix, d.Name),
		Text:  description,
		Fields: []command.Field{
			{Name: "Category", Value: d.Category, Inline: true},
		},
	}
	if len(d.Aliases) > 0 {
		reply.Fields = append(reply.Fields, command.Field{Name: "Aliases", Value: "`" + strings.Join(d.Aliases, "`, `") + "`", Inline: true})
	}
	if d.Cooldown > 0 {
		reply.Fields = append(reply.Fields, command.Field{Name: "Cooldown", Value: fmt.Sprintf("%gs", d.Cooldown.Seconds()), Inline: true})
	}
	if d.Usage != "" {
		reply.Fields = append(reply.Fields, command.Field{Name: "Usage", Value: fmt.Sprintf("`%s%s %s`", prefix, d.Name, d.Usage)})
	}
	if len(d.Examples) > 0 {
		lines := make([]string, len(d.Examples))
		for i, ex := range d.Examples {
			lines[i] = fmt.Sprintf("`%s%s`", prefix, ex)
		}
		reply.Fields = append(reply.Fields, command.Field{Name: "Examples", Value: strings.Join(lines, "\n")})
	}
	if len(d.UserPermissions) > 0 {
		reply.Fields = append(reply.Fields, command.Field{Name: "Required permissions", Value: strings.Join(perm.DisplayNames(d.UserPermissions), ", ")})
	}

	var only []string
	if d.Flags.GuildOnly {
		only = append(only, "servers only")
	}
	if d.Flags.DMOnly {
		only = append(only, "direct messages only")
	}
	if d.Flags.OwnerOnly {
		only = append(only, "bot owners only")
	}
	if d.Flags.DeveloperOnly {
		only = append(only, "developers only")
	}
	if len(only) > 0 {
		reply.Fields = append(reply.Fields, command.Field{Name: "Restrictions", Value: strings.Join(only, ", ")})
	}
	return reply
}

func visible(list []*command.Descriptor, developer bool) []*command.Descriptor {
	out := list[:0:0]
	for _, d := range list {
		if d.Flags.DeveloperOnly && !developer {
			continue
		}
		out = append(out, d)
	}
	return out
}

func commandLines(list []*command.Descriptor) string {
	var sb strings.Builder
	for _, d := range list {
		desc := d.Description
		if desc == "" {
			desc = "No description."
		}
		sb.WriteString(fmt.Sprintf("`%s` - %s\n", d.Name, desc))
	}
	return sb.String()
}
