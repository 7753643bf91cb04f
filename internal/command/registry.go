package command

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Registry is the live name/alias table. Both maps are guarded by one lock
// so every resolution observes a consistent pair.
type Registry struct {
	mu      sync.RWMutex
	names   map[string]*Descriptor
	aliases map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names:   make(map[string]*Descriptor),
		aliases: make(map[string]string),
	}
}

// Register adds d as owned by origin. A name already owned by the same origin
// is replaced in place.
func (r *Registry) Register(d *Descriptor, origin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	release := ""
	if existing, ok := r.names[d.Key()]; ok && existing.Origin == origin {
		release = existing.Key()
	}
	return r.commit(release, d, origin)
}

// Replace releases oldName and registers d as a single step. On failure the
// old descriptor stays registered.
func (r *Registry) Replace(oldName string, d *Descriptor, origin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	release := normalizeToken(oldName)
	if _, ok := r.names[release]; !ok {
		release = ""
	}
	return r.commit(release, d, origin)
}

// Unregister removes name and its aliases. It reports whether anything was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeToken(name)
	if _, ok := r.names[key]; !ok {
		return false
	}
	r.release(key)
	return true
}

// Resolve looks token up among names first, then aliases.
func (r *Registry) Resolve(token string) (*Descriptor, bool) {
	key := normalizeToken(token)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.names[key]; ok {
		return d, true
	}
	if name, ok := r.aliases[key]; ok {
		return r.names[name], true
	}
	return nil, false
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// All returns every descriptor sorted by name.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	out := make([]*Descriptor, 0, len(r.names))
	for _, d := range r.names {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Categories returns the distinct categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	seen := make(map[string]bool)
	for _, d := range r.names {
		seen[d.Category] = true
	}
	r.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ByCategory returns the descriptors of category, compared case-insensitively.
func (r *Registry) ByCategory(category string) []*Descriptor {
	var out []*Descriptor
	for _, d := range r.All() {
		if strings.EqualFold(d.Category, category) {
			out = append(out, d)
		}
	}
	return out
}

// commit validates d against the table as if release were already gone, then
// applies the change. Caller holds the write lock.
func (r *Registry) commit(release string, d *Descriptor, origin string) error {
	key := d.Key()
	if key == "" {
		return invalid("empty command name")
	}

	if existing, ok := r.names[key]; ok && key != release {
		return errors.Wrapf(ErrNameConflict, "%q is already registered from %s", d.Name, existing.Origin)
	}
	if owner, ok := r.aliases[key]; ok && owner != release {
		return errors.Wrapf(ErrNameConflict, "%q is already an alias of %q", d.Name, owner)
	}

	aliases := make([]string, 0, len(d.Aliases))
	seen := map[string]bool{key: true}
	for _, a := range d.Aliases {
		ak := normalizeToken(a)
		if ak == "" || seen[ak] {
			continue
		}
		seen[ak] = true

		if _, ok := r.names[ak]; ok && ak != release {
			return errors.Wrapf(ErrAliasConflict, "alias %q of %q is already a command name", a, d.Name)
		}
		if owner, ok := r.aliases[ak]; ok && owner != release {
			return errors.Wrapf(ErrAliasConflict, "alias %q of %q already points to %q", a, d.Name, owner)
		}
		aliases = append(aliases, ak)
	}

	if release != "" {
		r.release(release)
	}

	stored := *d
	stored.Name = key
	stored.Aliases = aliases
	stored.Origin = origin
	r.names[key] = &stored
	for _, a := range aliases {
		r.aliases[a] = key
	}
	return nil
}

func (r *Registry) release(key string) {
	d, ok := r.names[key]
	if !ok {
		return
	}
	for _, a := range d.Aliases {
		if r.aliases[a] == key {
			delete(r.aliases, a)
		}
	}
	delete(r.names, key)
}
