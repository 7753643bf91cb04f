package cmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry stores compiled command behaviors by key. It does not perform
// dispatch; descriptor files reference entries by key and the bot invokes
// them with its own context.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command wrapped with the given middlewares.
// Keys are case-insensitive and must be unique.
func (r *Registry) Register(c Command, mws ...Middleware) error {
	key := strings.ToLower(strings.TrimSpace(c.Name()))
	if key == "" {
		return fmt.Errorf("command has an empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[key]; exists {
		return fmt.Errorf("command %q is already registered", key)
	}
	r.commands[key] = Apply(c, mws...)
	return nil
}

// Get returns the command registered under key.
func (r *Registry) Get(key string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[strings.ToLower(key)]
	return c, ok
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// GetAll returns all registered commands, sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}
