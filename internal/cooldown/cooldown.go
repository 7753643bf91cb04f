// Package cooldown tracks per-user, per-command throttling windows.
package cooldown

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type key struct {
	command string
	user    string
}

// Tracker maps (command, user) to the instant the cooldown ends. An entry
// whose expiry has passed behaves exactly like a missing one.
type Tracker struct {
	mu      sync.Mutex
	entries map[key]time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[key]time.Time)}
}

// Check reports whether user may run command at now. When allowed and
// cooldown is positive, a new window starting at now is recorded. When denied,
// the remaining wait is returned.
func (t *Tracker) Check(command, user string, cooldown time.Duration, now time.Time) (bool, time.Duration) {
	if cooldown <= 0 {
		return true, 0
	}
	k := key{command: strings.ToLower(command), user: user}

	t.mu.Lock()
	defer t.mu.Unlock()

	if expiry, ok := t.entries[k]; ok {
		if expiry.After(now) {
			return false, expiry.Sub(now)
		}
		delete(t.entries, k)
	}
	t.entries[k] = now.Add(cooldown)
	return true, 0
}

// Sweep removes expired entries and returns how many were removed.
// Entries still in their window are never touched.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for k, expiry := range t.entries {
		if !expiry.After(now) {
			delete(t.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// RunCleaner sweeps expired entries every interval until ctx is done.
func (t *Tracker) RunCleaner(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := t.Sweep(now); n > 0 {
				log.Debug().Int("removed", n).Msg("expired cooldowns swept")
			}
		}
	}
}
