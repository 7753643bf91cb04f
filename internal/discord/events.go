package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
)

// onReady sets the presence and leaves blacklisted guilds.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		b.leaveIfBlacklisted(s, g.ID)
	}
	if b.cfg.Presence != "" {
		if err := s.UpdateGameStatus(0, b.cfg.Presence); err != nil {
			log.Warn().Err(err).Msg("failed to set presence")
		}
	}
	log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	log.Debug().Str("guild", g.Guild.ID).Str("name", g.Guild.Name).Msg("guild available")
	b.leaveIfBlacklisted(s, g.Guild.ID)
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) {
	if !b.isGuildBlacklisted(guildID) {
		return
	}
	log.Info().Str("guild", guildID).Msg("leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		log.Error().Err(err).Str("guild", guildID).Msg("failed to leave guild")
	}
}

// onMessageCreate runs on its own goroutine per event, so dispatches never
// wait for one another.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, dispatcher := b.context()
	if dispatcher == nil || m.Message == nil || m.Author == nil {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	dispatcher.Dispatch(ctx, b.toMessage(s, m))
}

func (b *Bot) toMessage(s *discordgo.Session, m *discordgo.MessageCreate) *command.Message {
	msg := &command.Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		AuthorIsBot: m.Author.Bot,
		Webhook:     m.WebhookID != "",
		Content:     m.Content,
	}
	if !msg.InGuild() || msg.AuthorIsBot || msg.Webhook {
		return msg
	}

	if perms, err := b.perms(s, msg.AuthorID, msg.ChannelID); err == nil {
		msg.AuthorPermissions = perms
	} else {
		log.Debug().Err(err).Str("user", msg.AuthorID).Msg("failed to compute user permissions")
	}
	if s.State != nil && s.State.User != nil {
		if perms, err := b.perms(s, s.State.User.ID, msg.ChannelID); err == nil {
			msg.BotPermissions = perms
		} else {
			log.Debug().Err(err).Str("channel", msg.ChannelID).Msg("failed to compute bot permissions")
		}
	}
	return msg
}
