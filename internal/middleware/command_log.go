// /internal/middleware/command_log.go
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

// WithCommandLogger logs every handler run with its duration.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			ev := log.Debug()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			ev = ev.Str("handler", c.Name()).Dur("took", time.Since(start))
			if cc, ok := inv.Data.(*command.Context); ok {
				ev = ev.Str("command", cc.Descriptor.Name).
					Str("user", cc.Message.AuthorID).
					Str("guild", cc.Message.GuildID)
			}
			ev.Msg("command executed")
			return err
		})
	}
}

// WithUsageRecorder persists a usage record after a successful run.
func WithUsageRecorder() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if err := c.Run(ctx, inv); err != nil {
				return err
			}

			cc, ok := inv.Data.(*command.Context)
			if !ok || cc.Client == nil {
				return nil
			}
			u := command.Usage{
				Command:   cc.Descriptor.Name,
				Args:      strings.Join(inv.Args, " "),
				GuildID:   cc.Message.GuildID,
				ChannelID: cc.Message.ChannelID,
				UserID:    cc.Message.AuthorID,
				Username:  cc.Message.AuthorName,
				At:        time.Now(),
			}
			if err := cc.Client.Settings().RecordCommandUsage(u); err != nil {
				log.Warn().Err(err).Str("command", u.Command).Msg("failed to record command usage")
			}
			return nil
		})
	}
}
