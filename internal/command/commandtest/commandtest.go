// Package commandtest provides in-memory collaborators for handler and
// dispatch tests.
package commandtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
)

var (
	_ command.Settings = (*Settings)(nil)
	_ command.Replier  = (*Replier)(nil)
	_ command.Client   = (*Client)(nil)
)

// Settings is a map-backed command.Settings.
type Settings struct {
	mu         sync.Mutex
	Default    string
	Prefixes   map[string]string
	Disabled   map[string]bool
	OwnerIDs   map[string]bool
	Developers map[string]bool
	Usages     []command.Usage
}

func NewSettings() *Settings {
	return &Settings{
		Default:    "+",
		Prefixes:   make(map[string]string),
		Disabled:   make(map[string]bool),
		OwnerIDs:   make(map[string]bool),
		Developers: make(map[string]bool),
	}
}

func (s *Settings) DefaultPrefix() string { return s.Default }

func (s *Settings) GetPrefix(guildID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Prefixes[guildID]; ok && guildID != "" {
		return p
	}
	return s.Default
}

func (s *Settings) SetPrefix(guildID, prefix string) error {
	if prefix == "" || len([]rune(prefix)) > 5 {
		return fmt.Errorf("invalid prefix %q", prefix)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prefixes[guildID] = prefix
	return nil
}

func (s *Settings) DisabledCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.Disabled)
}

func (s *Settings) DisableCommand(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Disabled[name] = true
	return nil
}

func (s *Settings) EnableCommand(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Disabled, name)
	return nil
}

func (s *Settings) Owners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.OwnerIDs)
}

func (s *Settings) AddOwner(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OwnerIDs[userID] {
		return fmt.Errorf("user %s is already an owner", userID)
	}
	s.OwnerIDs[userID] = true
	return nil
}

func (s *Settings) RemoveOwner(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.OwnerIDs[userID] {
		return fmt.Errorf("user %s is not an owner", userID)
	}
	delete(s.OwnerIDs, userID)
	return nil
}

func (s *Settings) IsOwner(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.OwnerIDs[userID]
}

func (s *Settings) IsDeveloper(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Developers[userID]
}

func (s *Settings) RecordCommandUsage(u command.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Usages = append(s.Usages, u)
	return nil
}

// UsageCount returns how many usages were recorded.
func (s *Settings) UsageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Usages)
}

// Replier records every reply.
type Replier struct {
	mu      sync.Mutex
	Replies []command.Reply
	Err     error
}

func (r *Replier) Reply(_ context.Context, reply command.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Replies = append(r.Replies, reply)
	return r.Err
}

// Last returns the most recent reply.
func (r *Replier) Last() (command.Reply, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Replies) == 0 {
		return command.Reply{}, false
	}
	return r.Replies[len(r.Replies)-1], true
}

// Client is a static command.Client.
type Client struct {
	Registry *command.Registry
	Store    command.Settings
	Counters command.Stats
	Ping     time.Duration
}

func (c *Client) Commands() *command.Registry { return c.Registry }
func (c *Client) Settings() command.Settings  { return c.Store }
func (c *Client) Stats() command.Stats        { return c.Counters }
func (c *Client) Latency() time.Duration      { return c.Ping }

// NewContext builds a handler context for a guild message from user u1.
func NewContext(client command.Client, d *command.Descriptor) (*command.Context, *Replier) {
	rep := &Replier{}
	return &command.Context{
		Message: &command.Message{
			ID:         "m1",
			ChannelID:  "c1",
			GuildID:    "g1",
			AuthorID:   "u1",
			AuthorName: "alice",
		},
		Descriptor: d,
		Invoked:    d.Name,
		Prefix:     "+",
		Replier:    rep,
		Client:     client,
	}, rep
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
