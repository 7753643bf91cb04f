// Package core owns the command registry, the policy chain and the invoker,
// and keeps the registry in sync with the commands directory.
package core

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/cooldown"
	"github.com/walidoudou/TemplatPrefix-discord/internal/policy"
	"github.com/walidoudou/TemplatPrefix-discord/internal/watcher"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/jobmgr"
)

const (
	jobWatcher = "command-watcher"
	jobReload  = "command-reload"
	jobCleaner = "cooldown-cleaner"
)

// ErrAlreadyInitialized is returned by a second Initialize.
var ErrAlreadyInitialized = errors.New("core already initialized")

// Gateway is the chat transport as seen by the core.
type Gateway interface {
	// Reply answers msg in its channel.
	Reply(ctx context.Context, msg *command.Message, r command.Reply) error
	// BotUserID is empty until the session is ready.
	BotUserID() string
	Latency() time.Duration
}

// ConfigStore is the persisted configuration the policy chain reads.
type ConfigStore = command.Settings

type Options struct {
	HandlerTimeout time.Duration
	WatchDebounce  time.Duration
	SweepInterval  time.Duration
	// CrashDir receives a dump for every handler panic. Empty disables dumps.
	CrashDir string
	Jobs     *jobmgr.Manager
	// Now overrides the clock, for tests.
	Now func() time.Time
}

var _ command.Client = (*Core)(nil)

type Core struct {
	registry  *command.Registry
	handlers  *cmd.Registry
	settings  ConfigStore
	gateway   Gateway
	cooldowns *cooldown.Tracker
	policy    *policy.Engine
	invoker   *Invoker
	jobs      *jobmgr.Manager
	opts      Options

	mu      sync.Mutex
	loader  *command.Loader
	watcher *watcher.Watcher

	startedAt time.Time
	messages  atomic.Uint64
	counters  *counters
}

// New wires a core. Commands are not loaded until Initialize.
func New(gateway Gateway, settings ConfigStore, handlers *cmd.Registry, opts Options) *Core {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Jobs == nil {
		opts.Jobs = jobmgr.NewManager(func(s string) {
			log.Debug().Str("job", s).Msg("job status")
		})
	}
	tracker := cooldown.NewTracker()
	stats := &counters{}

	return &Core{
		registry:  command.NewRegistry(),
		handlers:  handlers,
		settings:  settings,
		gateway:   gateway,
		cooldowns: tracker,
		policy:    policy.NewEngine(tracker),
		invoker:   NewInvoker(opts.HandlerTimeout, opts.CrashDir, stats, opts.Now),
		jobs:      opts.Jobs,
		opts:      opts,
		startedAt: opts.Now(),
		counters:  stats,
	}
}

// Initialize loads every descriptor under dir and starts watching it. Only a
// directory that cannot be created or watched is an error; bad descriptors
// are logged and skipped.
func (c *Core) Initialize(ctx context.Context, dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loader != nil {
		return ErrAlreadyInitialized
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create commands directory %s", dir)
	}

	// the watcher snapshots existing files first so nothing written during
	// the initial scan is missed
	w, err := watcher.New(dir,
		watcher.WithDebounce(c.opts.WatchDebounce),
		watcher.WithFilter(command.IsDescriptorFile),
	)
	if err != nil {
		return errors.Wrap(err, "failed to start command watcher")
	}

	loader := command.NewLoader(c.registry, c.handlers, dir)
	loaded, errs := loader.LoadAll(ctx, dir)
	for _, err := range errs {
		log.Error().Err(err).Msg("failed to load command")
	}
	log.Info().Int("loaded", loaded).Int("failed", len(errs)).Str("dir", dir).Msg("commands loaded")

	c.loader = loader
	c.watcher = w

	starts := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{jobWatcher, w.Run},
		{jobReload, func(ctx context.Context) error { return c.consume(ctx, w.Events()) }},
		{jobCleaner, func(ctx context.Context) error { return c.cooldowns.RunCleaner(ctx, c.opts.SweepInterval) }},
	}
	for _, s := range starts {
		if err := c.jobs.StartAsync(s.name, s.run); err != nil {
			c.jobs.StopAll()
			_ = w.Close()
			c.loader, c.watcher = nil, nil
			return errors.Wrapf(err, "failed to start %s", s.name)
		}
	}
	return nil
}

// Close stops the background jobs and the watcher.
func (c *Core) Close() error {
	c.jobs.StopAll()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}

// LoadedCommandCount returns the number of registered commands.
func (c *Core) LoadedCommandCount() int { return c.registry.Len() }

// Categories returns the sorted distinct categories.
func (c *Core) Categories() []string { return c.registry.Categories() }

func (c *Core) Commands() *command.Registry { return c.registry }

func (c *Core) Settings() command.Settings { return c.settings }

func (c *Core) Latency() time.Duration {
	if c.gateway == nil {
		return 0
	}
	return c.gateway.Latency()
}

func (c *Core) Stats() command.Stats {
	used, last := c.counters.snapshot()
	return command.Stats{
		StartedAt:        c.startedAt,
		MessagesReceived: c.messages.Load(),
		CommandsUsed:     used,
		LastCommandAt:    last,
	}
}

// Jobs lists the running background jobs.
func (c *Core) Jobs() []string { return c.jobs.List() }
