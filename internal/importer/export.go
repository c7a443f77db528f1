package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/starford/knowleague/internal/checksum"
	"github.com/starford/knowleague/internal/parser"
)

const maxSlugLen = 60

// Export writes every note to <slug>-<id>.md at the vault root and records
// the files in the manifest, so a later Sync treats them as unchanged.
// It returns the number of files written.
func (im *Importer) Export(ctx context.Context) (int, error) {
	m, err := loadManifest(im.vault)
	if err != nil {
		return 0, err
	}
	notes, err := im.notes.ListNotes(ctx)
	if err != nil {
		return 0, err
	}

	// A note that came from a file goes back to the same file.
	byID := make(map[string]string)
	for _, p := range m.paths() {
		e, _ := m.get(p)
		byID[e.ID] = p
	}

	n := 0
	for _, note := range notes {
		if !note.Persisted() {
			im.logger.Warn("export: note without id skipped", slog.String("title", note.Title))
			continue
		}
		id := note.ID.Hex()
		data, err := parser.Render(note.Title, note.Content, note.Tags)
		if err != nil {
			return n, err
		}
		path, ok := byID[id]
		if !ok {
			path = fmt.Sprintf("%s-%s.md", Slug(note.Title), id)
		}
		if err := im.vault.Write(path, data); err != nil {
			return n, err
		}
		m.set(path, Entry{ID: id, Checksum: checksum.Sum(data)})
		n++
	}

	if err := m.save(im.vault); err != nil {
		return n, err
	}
	im.logger.Info("export: finished", slog.Int("notes", n), slog.String("root", im.vault.Root()))
	return n, nil
}

// Slug lowercases title and joins its letter and digit runs with hyphens.
func Slug(title string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}
	s := b.String()
	if len(s) > maxSlugLen {
		s = strings.TrimRight(truncate(s, maxSlugLen), "-")
	}
	if s == "" {
		return "note"
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}
