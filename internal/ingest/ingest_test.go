package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFile_CreatesNote(t *testing.T) {
	st := testutil.TestStore(t)
	in := New(st, testutil.Logger())

	dir := t.TempDir()
	path := writeFile(t, dir, "plans.md", "---\ntitle: Plans\ntags: [work]\n---\ndo things #soon\n")

	n, imported, err := in.File(path)
	if err != nil {
		t.Fatal(err)
	}
	if !imported {
		t.Fatal("expected import")
	}
	if n.Title != "Plans" {
		t.Errorf("title = %q", n.Title)
	}
	if len(n.Tags) != 2 || n.Tags[0] != "work" || n.Tags[1] != "soon" {
		t.Errorf("tags = %v", n.Tags)
	}
	if _, ok := st.Get(n.ID); !ok {
		t.Error("note not in store")
	}
}

func TestFile_UpdatesNoteWithSameTitle(t *testing.T) {
	st := testutil.TestStore(t)
	in := New(st, testutil.Logger())
	dir := t.TempDir()

	path := writeFile(t, dir, "a.md", "---\ntitle: Journal\n---\nfirst\n")
	first, _, err := in.File(path)
	if err != nil {
		t.Fatal(err)
	}

	path2 := writeFile(t, dir, "b.md", "---\ntitle: Journal\n---\nsecond\n")
	second, _, err := in.File(path2)
	if err != nil {
		t.Fatal(err)
	}

	if second.ID != first.ID {
		t.Errorf("same title must update the existing note: %q vs %q", second.ID, first.ID)
	}
	if got, _ := st.Get(first.ID); got.Body != "second\n" {
		t.Errorf("body = %q", got.Body)
	}
	if st.Len() != 1 {
		t.Errorf("store has %d notes, want 1", st.Len())
	}
}

func TestFile_TitleFromFilename(t *testing.T) {
	st := testutil.TestStore(t)
	in := New(st, testutil.Logger())

	path := writeFile(t, t.TempDir(), "shopping-list.md", "milk, eggs\n")
	n, imported, err := in.File(path)
	if err != nil {
		t.Fatal(err)
	}
	if !imported || n.Title != "shopping-list" {
		t.Errorf("imported=%v title=%q", imported, n.Title)
	}
}

func TestFile_SkipsEmpty(t *testing.T) {
	st := testutil.TestStore(t)
	in := New(st, testutil.Logger())

	path := writeFile(t, t.TempDir(), "empty.md", "\n\n")
	_, imported, err := in.File(path)
	if err != nil {
		t.Fatal(err)
	}
	if imported {
		t.Error("empty file must be skipped")
	}
}

func TestDir_ImportsRecursively(t *testing.T) {
	st := testutil.TestStore(t)
	in := New(st, testutil.Logger())

	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "one.md", "# One\ntext\n")
	writeFile(t, sub, "two.md", "# Two\ntext\n")
	writeFile(t, dir, "ignore.txt", "not markdown\n")

	count, err := in.Dir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("imported %d files, want 2", count)
	}
	if st.Len() != 2 {
		t.Errorf("store has %d notes, want 2", st.Len())
	}
}
