package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const ext = ".yaml"

// Store loads templates from one or more file systems and caches them by
// name. Earlier layers take precedence, so an override directory can be
// placed in front of the built-in templates.
type Store struct {
	layers []fs.FS

	mu    sync.RWMutex
	cache map[string]*Template
}

// NewStore creates a Store reading <name>.yaml from the given layers.
func NewStore(layers ...fs.FS) *Store {
	return &Store{
		layers: layers,
		cache:  make(map[string]*Template),
	}
}

// Load returns the named template, reading it on first use only.
func (s *Store) Load(name string) (*Template, error) {
	s.mu.RLock()
	t, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := s.read(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = t
	return t, nil
}

func (s *Store) read(name string) (*Template, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("load template %q: %w", name, ErrTemplateNotFound)
	}

	for _, layer := range s.layers {
		data, err := fs.ReadFile(layer, name+ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read template %q: %w", name, err)
		}
		return parse(name, data)
	}
	return nil, fmt.Errorf("load template %q: %w", name, ErrTemplateNotFound)
}

func parse(name string, data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode template %q: %w: %v", name, ErrTemplateMalformed, err)
	}
	if strings.TrimSpace(t.System) == "" {
		return nil, fmt.Errorf("template %q has no systemPrompt: %w", name, ErrTemplateMalformed)
	}
	if strings.TrimSpace(t.User) == "" {
		return nil, fmt.Errorf("template %q has no userTemplate: %w", name, ErrTemplateMalformed)
	}
	t.Name = name
	return &t, nil
}

// Get loads the named template and renders both instruction strings.
func (s *Store) Get(name string, vars map[string]any) (Rendered, error) {
	t, err := s.Load(name)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		System: Render(t.System, vars),
		User:   Render(t.User, vars),
		Fields: slices.Clone(t.Fields),
	}, nil
}

// ClearCache drops every cached template.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// Loaded returns the sorted names of cached templates.
func (s *Store) Loaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.cache))
}

// Names returns the sorted names of all templates available in any layer.
func (s *Store) Names() ([]string, error) {
	seen := make(map[string]struct{})
	for _, layer := range s.layers {
		matches, err := fs.Glob(layer, "*"+ext)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		for _, m := range matches {
			seen[strings.TrimSuffix(path.Base(m), ext)] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}
