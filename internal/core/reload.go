package core

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/internal/watcher"
)

// consume applies watcher events to the registry until ctx ends or the
// watcher stops. Events for one path arrive in order on a single goroutine.
func (c *Core) consume(ctx context.Context, events <-chan watcher.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.apply(ev)
		}
	}
}

func (c *Core) apply(ev watcher.Event) {
	c.mu.Lock()
	loader := c.loader
	c.mu.Unlock()
	if loader == nil {
		return
	}

	var err error
	switch ev.Op {
	case watcher.Created:
		_, err = loader.Load(ev.Path)
	case watcher.Modified:
		_, err = loader.Reload(ev.Path)
	case watcher.Removed:
		loader.Unload(ev.Path)
	}
	if err != nil {
		log.Error().Err(err).Str("op", ev.Op.String()).Msg("failed to apply command change")
	}
}
