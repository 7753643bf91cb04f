// Package handlers holds the compiled behaviors descriptor files refer to by
// their handler key.
package handlers

import (
	"fmt"
	"strings"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

// All returns one instance of every built-in handler.
func All() []cmd.Command {
	return []cmd.Command{
		&PingCommand{},
		&HelpCommand{},
		&PrefixCommand{},
		&OwnersCommand{},
		&ToggleCommand{},
		&StatsCommand{},
		&ReplyCommand{},
	}
}

// Register adds every built-in handler to r, wrapped with mws.
func Register(r *cmd.Registry, mws ...cmd.Middleware) error {
	for _, c := range All() {
		if err := r.Register(c, mws...); err != nil {
			return fmt.Errorf("failed to register handler %s: %w", c.Name(), err)
		}
	}
	return nil
}

func commandContext(inv *cmd.Invocation) (*command.Context, error) {
	cc, ok := inv.Data.(*command.Context)
	if !ok || cc == nil {
		return nil, fmt.Errorf("unexpected invocation payload %T", inv.Data)
	}
	return cc, nil
}

// parseUserID accepts a raw ID or a <@id> / <@!id> mention.
func parseUserID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<@")
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimSuffix(s, ">")
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s, true
}

func mention(id string) string {
	return "<@" + id + ">"
}
