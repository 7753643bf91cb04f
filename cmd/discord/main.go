// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/internal/config"
	"github.com/walidoudou/TemplatPrefix-discord/internal/core"
	"github.com/walidoudou/TemplatPrefix-discord/internal/discord"
	"github.com/walidoudou/TemplatPrefix-discord/internal/handlers"
	"github.com/walidoudou/TemplatPrefix-discord/internal/logging"
	"github.com/walidoudou/TemplatPrefix-discord/internal/middleware"
	"github.com/walidoudou/TemplatPrefix-discord/internal/storage"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/jobmgr"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logs, err := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logs.Close()

	log.Info().Msg("starting TemplatPrefix bot...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.New(cfg.StoragePath, storage.Options{
		DefaultPrefix: cfg.DefaultPrefix,
		Developers:    cfg.DeveloperIDs,
		Owners:        cfg.OwnerIDs,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close storage")
		}
	}()

	catalog := cmd.NewRegistry()
	if err := handlers.Register(catalog, middleware.WithUsageRecorder(), middleware.WithCommandLogger()); err != nil {
		log.Fatal().Err(err).Msg("failed to register handlers")
	}

	bot, err := discord.NewBot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Discord bot")
	}

	jobs := jobmgr.NewManager(func(status string) {
		log.Debug().Str("job", status).Msg("job status")
	})
	c := core.New(bot, store, catalog, core.Options{
		HandlerTimeout: cfg.HandlerTimeout,
		WatchDebounce:  cfg.WatchDebounce,
		SweepInterval:  cfg.CooldownSweepInterval,
		CrashDir:       logging.CrashDir(cfg.LogFile),
		Jobs:           jobs,
	})
	if err := c.Initialize(ctx, cfg.CommandsDir); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.CommandsDir).Msg("failed to initialize commands")
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("failed to stop command watcher")
		}
	}()
	bot.SetDispatcher(c)

	log.Info().Int("commands", c.LoadedCommandCount()).Strs("categories", c.Categories()).Msg("commands ready")

	if err := bot.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		return
	}
	log.Info().Msg("Discord bot exited cleanly")
}
