// Package testutil provides shared test helpers: an in-memory note repository
// with the same error semantics as the MongoDB store, and temporary vaults.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/knowleague/internal/apperr"
	"github.com/starford/knowleague/internal/models"
	"github.com/starford/knowleague/internal/notestore"
	"github.com/starford/knowleague/internal/storage"
)

// MemoryRepo implements notestore.Repository and noteservice.Prober in memory.
// Search ranks by whole-word hits weighted like the text index
// (title 3, tags 2, content 1).
type MemoryRepo struct {
	mu        sync.Mutex
	connected bool
	order     []primitive.ObjectID
	notes     map[primitive.ObjectID]models.Note

	// FailWith, when set, is returned as a store error by every operation.
	FailWith error
}

var _ notestore.Repository = (*MemoryRepo)(nil)

// NewMemoryRepo returns a connected, empty repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		connected: true,
		notes:     make(map[primitive.ObjectID]models.Note),
	}
}

// Disconnect makes every subsequent call fail with apperr.ErrNotConnected.
func (m *MemoryRepo) Disconnect() {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
}

// Connected reports the simulated connection state.
func (m *MemoryRepo) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Probe mimics the database-list acknowledgement.
func (m *MemoryRepo) Probe(_ context.Context) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Databases: %q", []string{"admin", notestore.DefaultDatabase}), nil
}

func (m *MemoryRepo) check() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return apperr.ErrNotConnected
	}
	if m.FailWith != nil {
		return apperr.Store("memory", m.FailWith)
	}
	return nil
}

func (m *MemoryRepo) Create(_ context.Context, title, content string, tags []string) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := primitive.NewObjectID()
	m.notes[id] = models.Note{ID: id, Title: title, Content: content, Tags: cloneTags(tags)}
	m.order = append(m.order, id)
	return id.Hex(), nil
}

func (m *MemoryRepo) List(_ context.Context) ([]models.Note, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Note, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.notes[id])
	}
	return out, nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	if err := m.check(); err != nil {
		return err
	}
	oid, err := notestore.ParseID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notes[oid]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.notes, oid)
	m.order = slices.DeleteFunc(m.order, func(o primitive.ObjectID) bool { return o == oid })
	return nil
}

func (m *MemoryRepo) Update(_ context.Context, id, title, content string, tags []string) error {
	if err := m.check(); err != nil {
		return err
	}
	oid, err := notestore.ParseID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notes[oid]; !ok {
		return apperr.ErrNotFound
	}
	m.notes[oid] = models.Note{ID: oid, Title: title, Content: content, Tags: cloneTags(tags)}
	return nil
}

func (m *MemoryRepo) Search(_ context.Context, query string) ([]models.Note, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	terms := words(query)
	if len(terms) == 0 {
		return []models.Note{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	type hit struct {
		note  models.Note
		score int
	}
	var hits []hit
	for _, id := range m.order {
		n := m.notes[id]
		score := 3*count(terms, words(n.Title)) +
			2*count(terms, words(strings.Join(n.Tags, " "))) +
			count(terms, words(n.Content))
		if score > 0 {
			hits = append(hits, hit{note: n, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]models.Note, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.note)
	}
	return out, nil
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127)
	})
}

func count(terms, in []string) int {
	n := 0
	for _, w := range in {
		if slices.Contains(terms, w) {
			n++
		}
	}
	return n
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return slices.Clone(tags)
}

// TestVault creates a temporary vault directory with a storage.FS.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir, "")
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
