package core

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/logging"
	"github.com/walidoudou/TemplatPrefix-discord/internal/policy"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

// ErrHandlerFailure wraps every error or panic raised by a handler.
var ErrHandlerFailure = errors.New("command handler failed")

const apologyTimeout = 5 * time.Second

type counters struct {
	mu   sync.Mutex
	used uint64
	last time.Time
}

func (c *counters) record(at time.Time) {
	c.mu.Lock()
	c.used++
	c.last = at
	c.mu.Unlock()
}

func (c *counters) snapshot() (uint64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used, c.last
}

// Invoker runs handlers in isolation. A failing or panicking handler is
// logged and answered with an apology; nothing propagates to the caller.
type Invoker struct {
	timeout  time.Duration
	crashDir string
	stats    *counters
	now      func() time.Time
}

// NewInvoker returns an invoker. A nil now uses time.Now.
func NewInvoker(timeout time.Duration, crashDir string, stats *counters, now func() time.Time) *Invoker {
	if stats == nil {
		stats = &counters{}
	}
	if now == nil {
		now = time.Now
	}
	return &Invoker{timeout: timeout, crashDir: crashDir, stats: stats, now: now}
}

// Invoke runs the descriptor's handler. The returned error wraps
// ErrHandlerFailure and has already been reported.
func (iv *Invoker) Invoke(ctx context.Context, cc *command.Context, args []string) error {
	err := iv.run(ctx, cc, args)
	if err == nil {
		iv.stats.record(iv.now())
		return nil
	}

	log.Error().Err(err).
		Str("command", cc.Descriptor.Name).
		Str("user", cc.Message.AuthorID).
		Str("guild", cc.Message.GuildID).
		Msg("command failed")

	// the handler context may already be expired
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), apologyTimeout)
	defer cancel()
	apology := command.Reply{Text: policy.Decision{Reason: policy.HandlerFailure}.Message(), Error: true}
	if rerr := cc.Reply(replyCtx, apology); rerr != nil {
		log.Warn().Err(rerr).Str("command", cc.Descriptor.Name).Msg("failed to send failure reply")
	}
	return err
}

// run waits for the handler or the deadline, whichever comes first. A handler
// that ignores its context keeps running in the background.
func (iv *Invoker) run(ctx context.Context, cc *command.Context, args []string) error {
	if iv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- iv.call(ctx, cc, args)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Mark(errors.Wrapf(ctx.Err(), "handler %s", cc.Descriptor.HandlerKey), ErrHandlerFailure)
	}
}

func (iv *Invoker) call(ctx context.Context, cc *command.Context, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).
				Str("command", cc.Descriptor.Name).Msg("command handler panicked")
			if iv.crashDir != "" {
				if path, derr := logging.WriteCrashDump(iv.crashDir, r); derr == nil {
					log.Error().Str("file", path).Msg("crash dump written")
				}
			}
			err = errors.Wrapf(ErrHandlerFailure, "panic: %v", r)
		}
	}()

	if cc.Descriptor.Handler == nil {
		return errors.Wrap(ErrHandlerFailure, "no handler bound")
	}
	if err := cc.Descriptor.Handler.Run(ctx, &cmd.Invocation{Args: args, Data: cc}); err != nil {
		return errors.Mark(errors.Wrapf(err, "handler %s", cc.Descriptor.HandlerKey), ErrHandlerFailure)
	}
	return nil
}
