// Package importer keeps notes in step with a directory of Markdown files.
// A manifest at the vault root remembers which note each file became, so
// re-running an import only touches files whose content changed.
package importer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/knowleague/internal/apperr"
	"github.com/starford/knowleague/internal/checksum"
	"github.com/starford/knowleague/internal/models"
	"github.com/starford/knowleague/internal/noteservice"
	"github.com/starford/knowleague/internal/parser"
	"github.com/starford/knowleague/internal/storage"
)

const defaultConcurrency = 4

// Notes is the note service surface the importer needs.
// *noteservice.Service satisfies it.
type Notes interface {
	CreateNote(ctx context.Context, in noteservice.NoteInput) (string, error)
	UpdateNote(ctx context.Context, id string, in noteservice.NoteInput) error
	DeleteNote(ctx context.Context, id string) error
	ListNotes(ctx context.Context) ([]models.Note, error)
}

// Vault is the file access the importer needs. *storage.FS satisfies it.
type Vault interface {
	storage.Provider
	Root() string
	Rel(abs string) (string, error)
}

// Report counts what a Sync did.
type Report struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
	Failed    int
}

// Importer syncs vault files into notes.
type Importer struct {
	notes       Notes
	vault       Vault
	logger      *slog.Logger
	concurrency int
}

// Option configures an Importer.
type Option func(*Importer)

// WithConcurrency bounds how many files are imported at once.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// New creates an Importer.
func New(notes Notes, vault Vault, logger *slog.Logger, opts ...Option) *Importer {
	im := &Importer{
		notes:       notes,
		vault:       vault,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
)

// Sync walks the vault and brings the notes up to date:
//   - new files become notes
//   - changed files replace their note's fields
//   - with prune, notes whose file is gone are deleted
//
// Per-file failures are logged and counted. A missing store connection
// aborts the run.
func (im *Importer) Sync(ctx context.Context, prune bool) (Report, error) {
	var rep Report

	m, err := loadManifest(im.vault)
	if err != nil {
		return rep, err
	}
	files, err := im.vault.List("")
	if err != nil {
		return rep, err
	}

	var mu sync.Mutex
	count := func(o outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			rep.Failed++
		case o == outcomeCreated:
			rep.Created++
		case o == outcomeUpdated:
			rep.Updated++
		default:
			rep.Unchanged++
		}
	}

	disk := make(map[string]struct{}, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for _, f := range files {
		disk[f.Path] = struct{}{}
		if e, ok := m.get(f.Path); ok && e.Checksum == f.Checksum {
			count(outcomeUnchanged, nil)
			continue
		}
		g.Go(func() error {
			o, err := im.importFile(gCtx, m, f.Path)
			if errors.Is(err, apperr.ErrNotConnected) {
				return err
			}
			if err != nil {
				im.logger.Warn("import: file failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			}
			count(o, err)
			return nil
		})
	}
	syncErr := g.Wait()

	if syncErr == nil && prune {
		for _, p := range m.paths() {
			if _, ok := disk[p]; ok {
				continue
			}
			if err := im.removeFile(ctx, m, p); err != nil {
				if errors.Is(err, apperr.ErrNotConnected) {
					syncErr = err
					break
				}
				im.logger.Warn("import: prune failed", slog.String("path", p), slog.String("error", err.Error()))
				rep.Failed++
				continue
			}
			rep.Deleted++
		}
	}

	// Keep whatever was imported before a failure.
	if err := m.save(im.vault); err != nil && syncErr == nil {
		syncErr = err
	}

	im.logger.Info("import: sync finished",
		slog.Int("created", rep.Created),
		slog.Int("updated", rep.Updated),
		slog.Int("unchanged", rep.Unchanged),
		slog.Int("deleted", rep.Deleted),
		slog.Int("failed", rep.Failed))
	return rep, syncErr
}

// importFile creates or updates the note for one vault file and records it.
// A manifest id the store no longer knows is replaced by a fresh note.
func (im *Importer) importFile(ctx context.Context, m *manifest, path string) (outcome, error) {
	data, err := im.vault.Read(path)
	if err != nil {
		return outcomeUnchanged, err
	}
	if e, ok := m.get(path); ok && checksum.Equal(e.Checksum, data) {
		return outcomeUnchanged, nil
	}
	res, err := parser.Parse(path, data)
	if err != nil {
		return outcomeUnchanged, err
	}
	in := noteservice.NoteInput{Title: res.Title, Content: res.Content, Tags: res.Tags}
	sum := checksum.Sum(data)

	if e, ok := m.get(path); ok {
		err := im.notes.UpdateNote(ctx, e.ID, in)
		switch {
		case err == nil:
			m.set(path, Entry{ID: e.ID, Checksum: sum})
			im.logger.Debug("import: updated", slog.String("path", path), slog.String("id", e.ID))
			return outcomeUpdated, nil
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidID):
			im.logger.Debug("import: stale manifest entry", slog.String("path", path), slog.String("id", e.ID))
		default:
			return outcomeUnchanged, err
		}
	}

	id, err := im.notes.CreateNote(ctx, in)
	if err != nil {
		return outcomeUnchanged, err
	}
	m.set(path, Entry{ID: id, Checksum: sum})
	im.logger.Debug("import: created", slog.String("path", path), slog.String("id", id))
	return outcomeCreated, nil
}

// removeFile deletes the note recorded for path. A note that is already gone
// only drops the manifest entry.
func (im *Importer) removeFile(ctx context.Context, m *manifest, path string) error {
	e, ok := m.get(path)
	if !ok {
		return nil
	}
	err := im.notes.DeleteNote(ctx, e.ID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrInvalidID) {
		return err
	}
	m.remove(path)
	im.logger.Debug("import: removed", slog.String("path", path), slog.String("id", e.ID))
	return nil
}
