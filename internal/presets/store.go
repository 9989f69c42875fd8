// Package presets persists named filter specifications on local device
// storage. All presets live under a single namespaced key in one JSON
// file; the list is unbounded and entirely user-managed.
package presets

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"lumi/domain"
	"lumi/domain/entity"
)

// StorageKey is the namespaced key the preset array is stored under.
const StorageKey = "lumi.saved_filters"

// Preset is one saved filter.
type Preset struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Filters entity.FilterSpec `json:"filters"`
}

// Store reads the file once on first access and rewrites it on every save
// or delete.
type Store struct {
	fs   afero.Fs
	path string

	mu      sync.Mutex
	loaded  bool
	presets []Preset
}

// NewStore creates a preset store over the given filesystem and file path.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// List returns the saved presets in saved order.
func (s *Store) List() ([]Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]Preset, len(s.presets))
	copy(out, s.presets)
	return out, nil
}

// Save appends a new named preset and persists the list.
func (s *Store) Save(name string, f entity.FilterSpec) (*Preset, error) {
	if name == "" {
		return nil, domain.Validationf("preset name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}

	p := Preset{ID: uuid.New().String(), Name: name, Filters: f}
	s.presets = append(s.presets, p)
	if err := s.flush(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes the preset with the given id and persists the list.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	for i := range s.presets {
		if s.presets[i].ID == id {
			s.presets = append(s.presets[:i], s.presets[i+1:]...)
			return s.flush()
		}
	}
	return domain.ErrNotFound
}

// load reads the file once; subsequent calls use the in-memory copy.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		// A missing file is an empty preset list.
		s.loaded = true
		s.presets = nil
		return nil
	}

	var doc map[string][]Preset
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("corrupt preset file %s: %w", s.path, err)
	}
	s.presets = doc[StorageKey]
	s.loaded = true
	return nil
}

func (s *Store) flush() error {
	doc := map[string][]Preset{StorageKey: s.presets}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.path, raw, 0o644)
}
