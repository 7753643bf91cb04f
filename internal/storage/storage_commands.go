package storage

import (
	"fmt"
	"strings"
)

// DisableCommand adds name to the bot-wide disabled set.
func (s *Storage) DisableCommand(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("command name is empty")
	}
	return s.updateBot(func(r *BotRecord) error {
		r.DisabledCommands = appendUnique(r.DisabledCommands, name)
		return nil
	})
}

// EnableCommand removes name from the disabled set.
func (s *Storage) EnableCommand(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	return s.updateBot(func(r *BotRecord) error {
		r.DisabledCommands, _ = without(r.DisabledCommands, name)
		return nil
	})
}

// DisabledCommands returns the disabled command names.
func (s *Storage) DisabledCommands() []string {
	return s.readBot().DisabledCommands
}

// IsCommandDisabled reports whether name is in the disabled set.
func (s *Storage) IsCommandDisabled(name string) bool {
	name = strings.ToLower(name)
	for _, d := range s.DisabledCommands() {
		if d == name {
			return true
		}
	}
	return false
}
