// /internal/storage/storage.go
package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/walidoudou/TemplatPrefix-discord/datastore"
	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
)

const (
	commandHistoryLimit int = 20
	maxPrefixLength     int = 5

	botKey = "bot"
)

// ErrInvalidPrefix is returned for prefixes that are empty, too long or contain spaces.
var ErrInvalidPrefix = fmt.Errorf("prefix must be 1 to %d characters without spaces", maxPrefixLength)

var _ command.Settings = (*Storage)(nil)

// Options seed the values that come from configuration rather than the store.
type Options struct {
	DefaultPrefix string
	Developers    []string
	Owners        []string
}

// Storage is the bot's persisted configuration. Every read-modify-write of a
// record runs under one lock.
type Storage struct {
	ds            *datastore.DataStore
	mu            sync.Mutex
	defaultPrefix string
	developers    map[string]bool
}

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Param     string    `json:"param"`
	Datetime  time.Time `json:"datetime"`
}

// GuildRecord is stored under the guild ID.
type GuildRecord struct {
	Prefix              string                 `json:"prefix,omitempty"`
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
}

// BotRecord is the single bot-wide record.
type BotRecord struct {
	Owners           []string             `json:"owners"`
	DisabledCommands []string             `json:"disabled_commands"`
	TotalCommands    int                  `json:"total_commands"`
	CommandsUsed     map[string]int       `json:"commands_used"`
	LastUsed         map[string]time.Time `json:"last_used"`
}

// New opens the store at filePath.
func New(filePath string, opts Options) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return NewWithDataStore(ds, opts)
}

// NewWithDataStore wraps an open datastore. Configured owners are merged into
// the stored owner list.
func NewWithDataStore(ds *datastore.DataStore, opts Options) (*Storage, error) {
	s := &Storage{
		ds:            ds,
		defaultPrefix: opts.DefaultPrefix,
		developers:    make(map[string]bool, len(opts.Developers)),
	}
	if s.defaultPrefix == "" {
		s.defaultPrefix = "+"
	}
	for _, id := range opts.Developers {
		if id = strings.TrimSpace(id); id != "" {
			s.developers[id] = true
		}
	}

	if len(opts.Owners) > 0 {
		err := s.updateBot(func(r *BotRecord) error {
			for _, id := range opts.Owners {
				r.Owners = appendUnique(r.Owners, strings.TrimSpace(id))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// getOrCreateGuildRecord returns a copy of the guild's record. Caller holds s.mu.
func (s *Storage) getOrCreateGuildRecord(guildID string) (*GuildRecord, error) {
	var record GuildRecord
	if _, err := s.ds.Decode(guildID, &record); err != nil {
		return nil, err
	}
	if record.CommandsHistoryList == nil {
		record.CommandsHistoryList = []CommandHistoryRecord{}
	}
	if len(record.CommandsHistoryList) > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[len(record.CommandsHistoryList)-commandHistoryLimit:]
	}
	return &record, nil
}

// getOrCreateBotRecord returns a copy of the bot record. Caller holds s.mu.
func (s *Storage) getOrCreateBotRecord() (*BotRecord, error) {
	var record BotRecord
	if _, err := s.ds.Decode(botKey, &record); err != nil {
		return nil, err
	}
	if record.CommandsUsed == nil {
		record.CommandsUsed = map[string]int{}
	}
	if record.LastUsed == nil {
		record.LastUsed = map[string]time.Time{}
	}
	return &record, nil
}

func (s *Storage) updateGuild(guildID string, fn func(*GuildRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	if err := fn(record); err != nil {
		return err
	}
	return s.ds.Add(guildID, record)
}

func (s *Storage) updateBot(fn func(*BotRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateBotRecord()
	if err != nil {
		return err
	}
	if err := fn(record); err != nil {
		return err
	}
	return s.ds.Add(botKey, record)
}

func (s *Storage) readBot() BotRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateBotRecord()
	if err != nil {
		return BotRecord{}
	}
	return *record
}

// DefaultPrefix is the prefix used when a guild has none.
func (s *Storage) DefaultPrefix() string {
	return s.defaultPrefix
}

// GetPrefix returns the guild's prefix, falling back to the default.
func (s *Storage) GetPrefix(guildID string) string {
	if guildID == "" {
		return s.defaultPrefix
	}

	s.mu.Lock()
	record, err := s.getOrCreateGuildRecord(guildID)
	s.mu.Unlock()
	if err != nil || record.Prefix == "" {
		return s.defaultPrefix
	}
	return record.Prefix
}

// SetPrefix stores a guild prefix. Setting the default prefix clears the override.
func (s *Storage) SetPrefix(guildID, prefix string) error {
	if guildID == "" {
		return fmt.Errorf("prefix can only be set for a guild")
	}
	if prefix == "" || len([]rune(prefix)) > maxPrefixLength || strings.IndexFunc(prefix, unicode.IsSpace) >= 0 {
		return ErrInvalidPrefix
	}
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		if prefix == s.defaultPrefix {
			r.Prefix = ""
		} else {
			r.Prefix = prefix
		}
		return nil
	})
}

// AppendCommandToHistory appends a command history record for a guild
func (s *Storage) AppendCommandToHistory(guildID string, rec CommandHistoryRecord) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		r.CommandsHistoryList = append(r.CommandsHistoryList, rec)
		if len(r.CommandsHistoryList) > commandHistoryLimit {
			r.CommandsHistoryList = r.CommandsHistoryList[len(r.CommandsHistoryList)-commandHistoryLimit:]
		}
		return nil
	})
}

func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistoryList, nil
}

// RecordCommandUsage bumps the usage counters and appends guild history.
func (s *Storage) RecordCommandUsage(u command.Usage) error {
	err := s.updateBot(func(r *BotRecord) error {
		r.TotalCommands++
		r.CommandsUsed[u.Command]++
		r.LastUsed[u.Command] = u.At
		return nil
	})
	if err != nil {
		return err
	}
	if u.GuildID == "" {
		return nil
	}
	return s.AppendCommandToHistory(u.GuildID, CommandHistoryRecord{
		ChannelID: u.ChannelID,
		UserID:    u.UserID,
		Username:  u.Username,
		Command:   u.Command,
		Param:     u.Args,
		Datetime:  u.At,
	})
}

// CommandUsage returns the total count and per-command counters.
func (s *Storage) CommandUsage() (int, map[string]int) {
	r := s.readBot()
	return r.TotalCommands, r.CommandsUsed
}

// SaveToFile flushes the store to disk.
func (s *Storage) SaveToFile() error {
	return s.ds.SaveToFile()
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func without(list []string, v string) ([]string, bool) {
	out := make([]string, 0, len(list))
	found := false
	for _, x := range list {
		if x == v {
			found = true
			continue
		}
		out = append(out, x)
	}
	return out, found
}
