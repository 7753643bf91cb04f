package storage

import (
	"fmt"
	"sort"
)

// Owners returns the bot owners.
func (s *Storage) Owners() []string {
	return s.readBot().Owners
}

// AddOwner adds userID to the owners. Adding an existing owner is an error.
func (s *Storage) AddOwner(userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is empty")
	}
	return s.updateBot(func(r *BotRecord) error {
		for _, id := range r.Owners {
			if id == userID {
				return fmt.Errorf("user %s is already an owner", userID)
			}
		}
		r.Owners = append(r.Owners, userID)
		return nil
	})
}

// RemoveOwner removes userID from the owners.
func (s *Storage) RemoveOwner(userID string) error {
	return s.updateBot(func(r *BotRecord) error {
		owners, found := without(r.Owners, userID)
		if !found {
			return fmt.Errorf("user %s is not an owner", userID)
		}
		r.Owners = owners
		return nil
	})
}

// IsOwner reports whether userID is a bot owner.
func (s *Storage) IsOwner(userID string) bool {
	for _, id := range s.Owners() {
		if id == userID {
			return true
		}
	}
	return false
}

// IsDeveloper reports whether userID is a configured developer.
func (s *Storage) IsDeveloper(userID string) bool {
	return s.developers[userID]
}

// Developers returns the configured developer IDs.
func (s *Storage) Developers() []string {
	out := make([]string, 0, len(s.developers))
	for id := range s.developers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
