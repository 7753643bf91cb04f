package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/retrylimit"
)

const (
	errorColor   = 0xE74C3C
	replyRetries = 3
)

// Reply sends r as an embed that references msg.
func (b *Bot) Reply(ctx context.Context, msg *command.Message, r command.Reply) error {
	send := b.messageSend(msg, r)
	return retrylimit.WithRetryMax(ctx, func() error {
		_, err := b.dg.ChannelMessageSendComplex(msg.ChannelID, send, discordgo.WithContext(ctx))
		return classify(err)
	}, b.limiter, replyRetries)
}

func (b *Bot) messageSend(msg *command.Message, r command.Reply) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{b.embed(r)},
		Reference: &discordgo.MessageReference{
			MessageID: msg.ID,
			ChannelID: msg.ChannelID,
			GuildID:   msg.GuildID,
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
}

func (b *Bot) embed(r command.Reply) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       r.Title,
		Description: r.Text,
		Color:       b.cfg.EmbedColor,
	}
	if r.Error {
		embed.Color = errorColor
	}
	for _, f := range r.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if b.cfg.EmbedFooter != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: b.cfg.EmbedFooter}
	}
	return embed
}

// restError exposes the HTTP status of a discordgo REST error to retrylimit.
type restError struct {
	*discordgo.RESTError
}

func (e restError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

func (e restError) Unwrap() error { return e.RESTError }

// classify marks client errors other than 429 as fatal so they are not retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	wrapped := restError{rest}
	code := wrapped.StatusCode()
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return &retrylimit.FatalError{Err: wrapped}
	}
	return wrapped
}
