package importer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/knowleague/internal/apperr"
)

const defaultDebounce = 200 * time.Millisecond

// Watch follows file changes under the vault root until ctx is cancelled.
// Changed paths are collected and handled together once the vault has been
// quiet for debounce: a path that still exists is imported, one that is gone
// has its note deleted. New directories are watched as they appear.
// A non-positive debounce selects the default.
func (im *Importer) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	m, err := loadManifest(im.vault)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := im.vault.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	im.logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			im.logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			im.flush(ctx, m, pending)
			pending = make(map[string]struct{})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := im.vault.Rel(ev.Name)
			if relErr != nil {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if strings.HasPrefix(filepath.Base(ev.Name), ".") {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						im.logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					}
					// Files may have landed before the watch was added.
					for _, p := range im.includedUnder(ev.Name) {
						schedule(p)
					}
					continue
				}
			}

			// A removed or moved-away directory only reports its own path.
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && rel != "." {
				if gone := m.under(rel); len(gone) > 0 {
					_ = w.Remove(ev.Name)
					for _, p := range gone {
						schedule(p)
					}
					continue
				}
			}

			if !im.vault.Includes(rel) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule(rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// flush applies the pending paths and saves the manifest.
func (im *Importer) flush(ctx context.Context, m *manifest, pending map[string]struct{}) {
	for rel := range pending {
		var err error
		if _, statErr := os.Stat(filepath.Join(im.vault.Root(), filepath.FromSlash(rel))); errors.Is(statErr, fs.ErrNotExist) {
			err = im.removeFile(ctx, m, rel)
		} else {
			_, err = im.importFile(ctx, m, rel)
		}
		if err != nil {
			im.logger.Warn("watcher: sync failed", slog.String("path", rel), slog.String("error", err.Error()))
			if errors.Is(err, apperr.ErrNotConnected) {
				break
			}
		}
	}
	if err := m.save(im.vault); err != nil {
		im.logger.Warn("watcher: save manifest failed", slog.String("error", err.Error()))
	}
}

// includedUnder returns the included files below an absolute directory.
func (im *Importer) includedUnder(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, relErr := im.vault.Rel(p); relErr == nil && im.vault.Includes(rel) {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
