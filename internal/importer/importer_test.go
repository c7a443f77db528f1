package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/knowleague/internal/apperr"
	"github.com/starford/knowleague/internal/models"
	"github.com/starford/knowleague/internal/noteservice"
	"github.com/starford/knowleague/internal/storage"
	"github.com/starford/knowleague/internal/testutil"
)

type env struct {
	dir   string
	vault *storage.FS
	repo  *testutil.MemoryRepo
	svc   *noteservice.Service
	im    *Importer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir, vault := testutil.TestVault(t)
	repo := testutil.NewMemoryRepo()
	svc := noteservice.NewService(repo, repo, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &env{dir: dir, vault: vault, repo: repo, svc: svc, im: New(svc, vault, logger, WithConcurrency(2))}
}

func (e *env) write(t *testing.T, rel, content string) {
	t.Helper()
	if err := e.vault.Write(rel, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

func (e *env) notes(t *testing.T) []models.Note {
	t.Helper()
	notes, err := e.svc.ListNotes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return notes
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestSync_CreatesThenSkipsUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "alpha.md", "---\ntitle: Alpha\ntags: [x]\n---\nfirst note\n")
	e.write(t, "sub/beta.md", "# Beta\nsecond note #y\n")
	e.write(t, "ignored.txt", "nope")

	rep, err := e.im.Sync(ctx, false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if rep.Created != 2 || rep.Failed != 0 {
		t.Errorf("report = %+v", rep)
	}

	notes := e.notes(t)
	if len(notes) != 2 {
		t.Fatalf("notes = %+v", notes)
	}
	byTitle := map[string]models.Note{}
	for _, n := range notes {
		byTitle[n.Title] = n
	}
	if a := byTitle["Alpha"]; a.Content != "first note\n" || len(a.Tags) != 1 || a.Tags[0] != "x" {
		t.Errorf("alpha = %+v", a)
	}
	if b := byTitle["Beta"]; len(b.Tags) != 1 || b.Tags[0] != "y" {
		t.Errorf("beta = %+v", b)
	}

	if _, err := os.Stat(filepath.Join(e.dir, ManifestName)); err != nil {
		t.Errorf("manifest not written: %v", err)
	}

	rep, err = e.im.Sync(ctx, false)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if rep.Unchanged != 2 || rep.Created != 0 || rep.Updated != 0 {
		t.Errorf("second report = %+v", rep)
	}
}

func TestSync_UpdateKeepsID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "n.md", "# One\nv1")
	if _, err := e.im.Sync(ctx, false); err != nil {
		t.Fatal(err)
	}
	before := e.notes(t)[0].ID

	e.write(t, "n.md", "# Two\nv2")
	rep, err := e.im.Sync(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Updated != 1 {
		t.Errorf("report = %+v", rep)
	}
	notes := e.notes(t)
	if len(notes) != 1 || notes[0].ID != before || notes[0].Title != "Two" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestSync_LineEndingOnlyChangeIsUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "n.md", "# One\nv1\n")
	if _, err := e.im.Sync(ctx, false); err != nil {
		t.Fatal(err)
	}

	e.write(t, "n.md", "# One\r\nv1\r\n")
	rep, err := e.im.Sync(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Unchanged != 1 || rep.Updated != 0 {
		t.Errorf("report = %+v", rep)
	}
}

func TestSync_StaleIDRecreated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "n.md", "# One")
	if _, err := e.im.Sync(ctx, false); err != nil {
		t.Fatal(err)
	}
	old := e.notes(t)[0].ID.Hex()
	if err := e.svc.DeleteNote(ctx, old); err != nil {
		t.Fatal(err)
	}

	e.write(t, "n.md", "# One again")
	rep, err := e.im.Sync(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Created != 1 {
		t.Errorf("report = %+v", rep)
	}
	notes := e.notes(t)
	if len(notes) != 1 || notes[0].ID.Hex() == old {
		t.Errorf("notes = %+v", notes)
	}
}

func TestSync_Prune(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.write(t, "keep.md", "# Keep")
	e.write(t, "drop.md", "# Drop")
	if _, err := e.im.Sync(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := e.vault.Delete("drop.md"); err != nil {
		t.Fatal(err)
	}

	rep, err := e.im.Sync(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Deleted != 0 || len(e.notes(t)) != 2 {
		t.Errorf("without prune: report = %+v", rep)
	}

	rep, err = e.im.Sync(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	notes := e.notes(t)
	if rep.Deleted != 1 || len(notes) != 1 || notes[0].Title != "Keep" {
		t.Errorf("with prune: report = %+v, notes = %+v", rep, notes)
	}
}

func TestSync_NotConnected(t *testing.T) {
	e := newEnv(t)
	e.write(t, "n.md", "# One")
	e.repo.Disconnect()

	_, err := e.im.Sync(context.Background(), false)
	if !errors.Is(err, apperr.ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestExport_ThenSyncUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, err := e.svc.CreateNote(ctx, noteservice.NoteInput{Title: "Weekly: Standup!", Content: "body", Tags: []string{"team"}})
	if err != nil {
		t.Fatal(err)
	}

	n, err := e.im.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 1 {
		t.Errorf("exported = %d", n)
	}

	want := "weekly-standup-" + id + ".md"
	data, err := e.vault.Read(want)
	if err != nil {
		t.Fatalf("read %s: %v", want, err)
	}
	if !strings.Contains(string(data), "Weekly: Standup!") || !strings.HasSuffix(string(data), "body") {
		t.Errorf("file = %q", data)
	}

	rep, err := e.im.Sync(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Unchanged != 1 || rep.Created != 0 {
		t.Errorf("report = %+v", rep)
	}
	if len(e.notes(t)) != 1 {
		t.Error("export then sync duplicated the note")
	}
}

type listOnly struct {
	Notes
	notes []models.Note
}

func (l listOnly) ListNotes(context.Context) ([]models.Note, error) {
	return l.notes, nil
}

func TestExport_SkipsNotesWithoutID(t *testing.T) {
	dir, vault := testutil.TestVault(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notes := listOnly{notes: []models.Note{
		{Title: "Draft"},
		{ID: primitive.NewObjectID(), Title: "Kept"},
	}}

	n, err := New(notes, vault, logger).Export(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("exported = %d, want 1", n)
	}
	files, err := vault.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || !strings.HasPrefix(files[0].Path, "kept-") {
		t.Errorf("files in %s = %+v", dir, files)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Hello World":       "hello-world",
		"  --Mixed__Case--": "mixed-case",
		"Привет, мир":       "привет-мир",
		"!!!":               "note",
		"":                  "note",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Slug(strings.Repeat("ab ", 50)); len(got) > maxSlugLen || strings.HasSuffix(got, "-") {
		t.Errorf("long slug = %q", got)
	}
}

func TestWatch_CreateAndRemove(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = e.im.Watch(ctx, 50*time.Millisecond)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(e.dir, "new.md"), []byte("# New\nhello"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		notes := e.notes(t)
		return len(notes) == 1 && notes[0].Title == "New"
	}, "new file not imported by watcher")

	_ = os.MkdirAll(filepath.Join(e.dir, "later"), 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(e.dir, "later", "deep.md"), []byte("# Deep"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(e.notes(t)) == 2
	}, "file in new directory not imported")

	_ = os.Remove(filepath.Join(e.dir, "new.md"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		notes := e.notes(t)
		return len(notes) == 1 && notes[0].Title == "Deep"
	}, "removed file's note not deleted")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_DirectoryMovedAway(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.write(t, "top.md", "# Top")
	e.write(t, "project/a.md", "# A")
	e.write(t, "project/deep/b.md", "# B")
	if _, err := e.im.Sync(ctx, false); err != nil {
		t.Fatal(err)
	}
	if len(e.notes(t)) != 3 {
		t.Fatalf("notes = %+v", e.notes(t))
	}

	done := make(chan struct{})
	go func() {
		_ = e.im.Watch(ctx, 50*time.Millisecond)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	outside := filepath.Join(t.TempDir(), "project")
	if err := os.Rename(filepath.Join(e.dir, "project"), outside); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		notes := e.notes(t)
		return len(notes) == 1 && notes[0].Title == "Top"
	}, "notes under the moved directory were not deleted")

	cancel()
	<-done
}

func TestManifestUnder(t *testing.T) {
	m := &manifest{entries: map[string]Entry{
		"a/x.md":   {ID: "1"},
		"a/b/y.md": {ID: "2"},
		"ab/z.md":  {ID: "3"},
		"top.md":   {ID: "4"},
	}}
	got := m.under("a")
	if len(got) != 2 || got[0] != "a/b/y.md" || got[1] != "a/x.md" {
		t.Errorf("under(a) = %v", got)
	}
	if got := m.under("top.md"); len(got) != 0 {
		t.Errorf("under(top.md) = %v", got)
	}
}
