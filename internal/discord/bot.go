// /internal/discord/bot.go
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/config"
	"github.com/walidoudou/TemplatPrefix-discord/internal/core"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/retrylimit"
)

var _ core.Gateway = (*Bot)(nil)

// Dispatcher handles inbound messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *command.Message) core.Result
}

// permissionFunc computes a user's effective permissions in a channel.
type permissionFunc func(s *discordgo.Session, userID, channelID string) (int64, error)

// Bot is the Discord gateway: it turns message events into dispatches and
// sends replies back as embeds.
type Bot struct {
	cfg       *config.Config
	dg        *discordgo.Session
	limiter   *retrylimit.AdaptiveLimiter
	blacklist map[string]bool
	perms     permissionFunc

	mu         sync.RWMutex
	dispatcher Dispatcher
	runCtx     context.Context
}

// NewBot creates the session without connecting.
func NewBot(cfg *config.Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAll

	blacklist := make(map[string]bool, len(cfg.GuildBlacklist))
	for _, id := range cfg.GuildBlacklist {
		blacklist[id] = true
	}

	return &Bot{
		cfg:       cfg,
		dg:        dg,
		limiter:   retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		blacklist: blacklist,
		perms:     sessionPermissions,
		runCtx:    context.Background(),
	}, nil
}

// SetDispatcher sets where message events go. Messages received before it is
// set are dropped.
func (b *Bot) SetDispatcher(d Dispatcher) {
	b.mu.Lock()
	b.dispatcher = d
	b.mu.Unlock()
}

// Run opens the session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.runCtx = ctx
	b.mu.Unlock()

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, closing Discord session")
	return nil
}

// BotUserID returns the bot's user ID once the session is ready.
func (b *Bot) BotUserID() string {
	if b.dg == nil || b.dg.State == nil || b.dg.State.User == nil {
		return ""
	}
	return b.dg.State.User.ID
}

// Latency returns the gateway heartbeat latency.
func (b *Bot) Latency() time.Duration {
	if b.dg == nil {
		return 0
	}
	return b.dg.HeartbeatLatency()
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return b.blacklist[guildID]
}

func (b *Bot) context() (context.Context, Dispatcher) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.runCtx, b.dispatcher
}
