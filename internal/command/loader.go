package command

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/util"
)

// Loader keeps the registry in sync with descriptor files. Work on a single
// path is serialized; different paths proceed independently.
type Loader struct {
	registry *Registry
	parser   *Parser

	mu    sync.Mutex
	paths map[string]string
	locks map[string]*pathLock
}

// pathLock is dropped from the loader once no caller holds or waits on it.
type pathLock struct {
	sync.Mutex
	refs int
}

// NewLoader returns a loader for descriptor files under root.
func NewLoader(registry *Registry, handlers *cmd.Registry, root string) *Loader {
	return &Loader{
		registry: registry,
		parser:   &Parser{Root: root, Handlers: handlers},
		paths:    make(map[string]string),
		locks:    make(map[string]*pathLock),
	}
}

// Load registers the descriptor at path, replacing whatever path registered before.
func (l *Loader) Load(path string) (*Descriptor, error) {
	unlock := l.lock(path)
	defer unlock()

	d, err := l.parser.ParseFile(path)
	if err != nil {
		return nil, &LoadError{Op: "load", Path: path, Err: err}
	}
	if err := l.commit(path, d); err != nil {
		return nil, &LoadError{Op: "load", Path: path, Err: err}
	}
	return d, nil
}

// Reload re-reads path. Invalid content leaves the previous descriptor in place.
func (l *Loader) Reload(path string) (*Descriptor, error) {
	unlock := l.lock(path)
	defer unlock()

	d, err := l.parser.ParseFile(path)
	if err != nil {
		return nil, &LoadError{Op: "reload", Path: path, Err: err}
	}
	if err := l.commit(path, d); err != nil {
		return nil, &LoadError{Op: "reload", Path: path, Err: err}
	}
	return d, nil
}

// Unload removes the command path registered. Unknown paths are a no-op.
func (l *Loader) Unload(path string) bool {
	unlock := l.lock(path)
	defer unlock()

	name := l.nameFor(path)
	if name == "" {
		return false
	}

	removed := false
	if d, ok := l.registry.Resolve(name); ok && d.Origin == path {
		removed = l.registry.Unregister(name)
	}

	l.mu.Lock()
	delete(l.paths, path)
	l.mu.Unlock()

	if removed {
		log.Info().Str("command", name).Str("path", path).Msg("command unloaded")
	}
	return removed
}

// NameFor returns the command name last registered from path.
func (l *Loader) NameFor(path string) string {
	return l.nameFor(path)
}

// LoadAll scans dir, parses descriptor files in parallel and registers them in
// path order. Files that fail are reported and skipped.
func (l *Loader) LoadAll(ctx context.Context, dir string) (int, []error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != dir && isHidden(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsDescriptorFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, []error{&LoadError{Op: "scan", Path: dir, Err: err}}
	}
	sort.Strings(paths)

	type parsed struct {
		desc *Descriptor
		err  error
	}
	results := make([]parsed, len(paths))
	indexes := make([]int, len(paths))
	for i := range indexes {
		indexes[i] = i
	}

	_ = util.Parallel(indexes, runtime.NumCPU(), func(_ context.Context, i int) error {
		d, err := l.parser.ParseFile(paths[i])
		results[i] = parsed{desc: d, err: err}
		return nil
	})

	var errs []error
	loaded := 0
	for i, path := range paths {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if results[i].err != nil {
			errs = append(errs, &LoadError{Op: "load", Path: path, Err: results[i].err})
			continue
		}

		unlock := l.lock(path)
		err := l.commit(path, results[i].desc)
		unlock()
		if err != nil {
			errs = append(errs, &LoadError{Op: "load", Path: path, Err: err})
			continue
		}
		loaded++
	}
	return loaded, errs
}

// commit registers d for path. Caller holds the path lock.
func (l *Loader) commit(path string, d *Descriptor) error {
	old := l.nameFor(path)

	var err error
	if old != "" {
		err = l.registry.Replace(old, d, path)
	} else {
		err = l.registry.Register(d, path)
	}
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.paths[path] = d.Key()
	l.mu.Unlock()

	if d.Unreachable() {
		log.Warn().Str("command", d.Name).Str("path", path).
			Msg("command is both guild_only and dm_only and can never run")
	}

	event := log.Info().Str("command", d.Name).Str("category", d.Category).Str("path", path)
	if old != "" {
		event.Str("previous", old).Msg("command reloaded")
	} else {
		event.Msg("command loaded")
	}
	return nil
}

func (l *Loader) nameFor(path string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paths[path]
}

func (l *Loader) lock(path string) func() {
	l.mu.Lock()
	m, ok := l.locks[path]
	if !ok {
		m = &pathLock{}
		l.locks[path] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(l.locks, path)
		}
		l.mu.Unlock()
	}
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
