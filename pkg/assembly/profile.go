package assembly

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FacetSpec names one facet to attach plus its factory configuration.
type FacetSpec struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// Profile describes the facet set for one kind of container.
type Profile struct {
	Name   string      `yaml:"name"`
	Facets []FacetSpec `yaml:"facets"`
}

// ProfileSet is the document shape of a profiles file.
type ProfileSet struct {
	Profiles []Profile `yaml:"profiles"`
}

// Profile returns the named profile, if present.
func (s *ProfileSet) Profile(name string) (Profile, bool) {
	for _, p := range s.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

func (s *ProfileSet) validate() error {
	seen := make(map[string]struct{}, len(s.Profiles))
	for _, p := range s.Profiles {
		if p.Name == "" {
			return fmt.Errorf("profile with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate profile name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		types := make(map[string]struct{}, len(p.Facets))
		for _, spec := range p.Facets {
			if spec.Type == "" {
				return fmt.Errorf("profile %q: facet with empty type", p.Name)
			}
			if _, dup := types[spec.Type]; dup {
				return fmt.Errorf("profile %q: duplicate facet type %q", p.Name, spec.Type)
			}
			types[spec.Type] = struct{}{}
		}
	}
	return nil
}

// Loader reads a profiles file and optionally watches it for changes.
// Environment variables in the file are expanded before parsing.
type Loader struct {
	path      string
	watcher   *fsnotify.Watcher
	onChange  func(*ProfileSet)
	close     chan struct{}
	closeOnce sync.Once

	mu      sync.RWMutex
	current *ProfileSet
}

// NewLoader creates a loader for the given profiles file path.
func NewLoader(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve profiles path: %w", err)
	}
	return &Loader{
		path:  absPath,
		close: make(chan struct{}),
	}, nil
}

// Load reads, expands, parses, and validates the profiles file. The
// loader keeps the previous profile set when a reload fails.
func (l *Loader) Load() (*ProfileSet, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var set ProfileSet
	if err := yaml.Unmarshal(expanded, &set); err != nil {
		return nil, fmt.Errorf("parse profiles YAML: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, fmt.Errorf("invalid profiles: %w", err)
	}

	l.mu.Lock()
	l.current = &set
	l.mu.Unlock()
	return &set, nil
}

// Current returns the most recently loaded profile set, or nil before the
// first successful Load.
func (l *Loader) Current() *ProfileSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Watch starts monitoring the profiles file, invoking onChange for every
// valid reload. The parent directory is watched because editors save
// atomically via rename.
func (l *Loader) Watch(onChange func(*ProfileSet)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	l.watcher = watcher
	l.onChange = onChange

	go l.watchLoop()

	if err := l.watcher.Add(filepath.Dir(l.path)); err != nil {
		l.watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	return nil
}

func (l *Loader) watchLoop() {
	for {
		select {
		case <-l.close:
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != l.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				// An invalid file keeps the previous set; Load only
				// replaces current on success.
				if set, err := l.Load(); err == nil && l.onChange != nil {
					l.onChange(set)
				}
			}
		case _, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher. Closing more than once is a no-op.
func (l *Loader) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.close)
		if l.watcher != nil {
			err = l.watcher.Close()
		}
	})
	return err
}
