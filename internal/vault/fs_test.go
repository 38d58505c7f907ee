package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/liminal-notes/vaultcore/internal/apperr"
)

func testFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return f, dir
}

func TestNewFS_MissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestWriteAndReadNote(t *testing.T) {
	f, _ := testFS(t)
	ctx := context.Background()

	res, err := f.WriteNote(ctx, "plan.md", "# Plan", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != "plan.md" || res.MtimeMs == 0 {
		t.Errorf("result = %+v", res)
	}

	note, err := f.ReadNote(ctx, "plan.md")
	if err != nil {
		t.Fatal(err)
	}
	if note.Content != "# Plan" {
		t.Errorf("content = %q", note.Content)
	}
	if note.MtimeMs != res.MtimeMs {
		t.Errorf("mtime mismatch: read %d, write %d", note.MtimeMs, res.MtimeMs)
	}
}

func TestWriteNote_ParentMissing(t *testing.T) {
	f, _ := testFS(t)
	ctx := context.Background()

	_, err := f.WriteNote(ctx, "sub/plan.md", "x", nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if _, err := f.WriteNote(ctx, "sub/plan.md", "x", &WriteOptions{CreateParents: true}); err != nil {
		t.Fatalf("CreateParents write failed: %v", err)
	}
}

func TestWriteNote_LeavesNoTempFiles(t *testing.T) {
	f, dir := testFS(t)
	if _, err := f.WriteNote(context.Background(), "a.md", "x", nil); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "a.md" {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestReadNote_Missing(t *testing.T) {
	f, _ := testFS(t)
	if _, err := f.ReadNote(context.Background(), "ghost.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReadNote_RejectsEscape(t *testing.T) {
	f, _ := testFS(t)
	if _, err := f.ReadNote(context.Background(), "../secret.md"); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
}

func TestListFiles(t *testing.T) {
	f, dir := testFS(t)
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Join(dir, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"a.md", "notes/b.md", "notes/skip.txt", ".hidden/c.md"} {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(p)), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := f.ListFiles(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	want := []string{"a.md", "notes", "notes/b.md"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestListFiles_IncludeHidden(t *testing.T) {
	f, dir := testFS(t)

	if err := os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden", "c.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := f.ListFiles(context.Background(), &ListOptions{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range entries {
		if e.ID == ".hidden/c.md" {
			found = true
		}
	}
	if !found {
		t.Error("hidden file not listed with IncludeHidden")
	}
}

func TestListFiles_SkipsUnreadableSubtree(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not restrict root")
	}
	f, dir := testFS(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	locked := filepath.Join(dir, "locked")
	if err := os.MkdirAll(locked, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(locked, "b.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	entries, err := f.ListFiles(ctx, nil)
	if err != nil {
		t.Fatalf("unreadable subtree aborted the listing: %v", err)
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		seen[e.ID] = true
	}
	if !seen["a.md"] {
		t.Error("readable file missing from listing")
	}
	if seen["locked/b.md"] {
		t.Error("file inside unreadable directory was listed")
	}
}

func TestRename(t *testing.T) {
	f, _ := testFS(t)
	ctx := context.Background()

	if _, err := f.WriteNote(ctx, "a.md", "x", nil); err != nil {
		t.Fatal(err)
	}

	if err := f.Rename(ctx, "a.md", "sub/b.md"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, err := f.ReadNote(ctx, "a.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("source still readable after rename")
	}
	note, err := f.ReadNote(ctx, "sub/b.md")
	if err != nil || note.Content != "x" {
		t.Errorf("destination read = %v, %v", note, err)
	}
}

func TestRename_Errors(t *testing.T) {
	f, _ := testFS(t)
	ctx := context.Background()

	if err := f.Rename(ctx, "ghost.md", "b.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	if _, err := f.WriteNote(ctx, "a.md", "x", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteNote(ctx, "b.md", "y", nil); err != nil {
		t.Fatal(err)
	}
	if err := f.Rename(ctx, "a.md", "b.md"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestStat(t *testing.T) {
	f, _ := testFS(t)
	ctx := context.Background()

	if _, err := f.WriteNote(ctx, "a.md", "hello", nil); err != nil {
		t.Fatal(err)
	}
	st, err := f.Stat(ctx, "a.md")
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsFile || st.IsDirectory || st.Size != 5 || st.MtimeMs == 0 {
		t.Errorf("stat = %+v", st)
	}

	if _, err := f.Stat(ctx, "ghost.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMkdir(t *testing.T) {
	f, _ := testFS(t)
	ctx := context.Background()

	if err := f.Mkdir(ctx, "a/b/c", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("non-recursive mkdir with missing parent = %v, want ErrNotFound", err)
	}
	if err := f.Mkdir(ctx, "a/b/c", &MkdirOptions{Recursive: true}); err != nil {
		t.Fatalf("recursive mkdir failed: %v", err)
	}
	st, err := f.Stat(ctx, "a/b/c")
	if err != nil || !st.IsDirectory {
		t.Errorf("stat after mkdir = %+v, %v", st, err)
	}
}
