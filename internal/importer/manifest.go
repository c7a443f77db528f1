package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file at the vault root that maps files to notes.
const ManifestName = ".knowleague.yaml"

// Entry links one vault file to the note imported from it.
type Entry struct {
	ID       string `yaml:"id"`
	Checksum string `yaml:"checksum"`
}

type manifestFile struct {
	Notes map[string]Entry `yaml:"notes"`
}

// manifest is the in-memory form of ManifestName, safe for concurrent use.
type manifest struct {
	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

type fileStore interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
}

func loadManifest(store fileStore) (*manifest, error) {
	m := &manifest{entries: make(map[string]Entry)}
	data, err := store.Read(ManifestName)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	var f manifestFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("importer: parse %s: %w", ManifestName, err)
	}
	for p, e := range f.Notes {
		m.entries[p] = e
	}
	return m, nil
}

func (m *manifest) get(path string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	return e, ok
}

func (m *manifest) set(path string, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[path] = e
	m.dirty = true
}

func (m *manifest) remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[path]; ok {
		delete(m.entries, path)
		m.dirty = true
	}
}

// paths returns the recorded paths, sorted.
func (m *manifest) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for p := range m.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// under returns the recorded paths inside dir, sorted.
func (m *manifest) under(dir string) []string {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for _, p := range m.paths() {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// save writes the manifest if anything changed since the last save.
func (m *manifest) save(store fileStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty {
		return nil
	}
	data, err := yaml.Marshal(manifestFile{Notes: m.entries})
	if err != nil {
		return fmt.Errorf("importer: encode manifest: %w", err)
	}
	if err := store.Write(ManifestName, data); err != nil {
		return err
	}
	m.dirty = false
	return nil
}
