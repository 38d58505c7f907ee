package indexer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/liminal-notes/vaultcore/internal/index"
	"github.com/liminal-notes/vaultcore/internal/tags"
	"github.com/liminal-notes/vaultcore/internal/testutil"
	"github.com/liminal-notes/vaultcore/internal/vault"
	"github.com/liminal-notes/vaultcore/internal/watcher"
)

func fastOptions() *Options {
	return &Options{SettleDelay: time.Millisecond, YieldDelay: time.Millisecond}
}

func tagDef(id, displayName string) tags.Tag {
	return tags.Tag{ID: id, DisplayName: displayName, CreatedAt: 1}
}

func noteEntry(id, title, content string, mtime int64) index.NoteEntry {
	return index.NoteEntry{ID: id, Title: title, Content: content, MtimeMs: mtime}
}

func TestUpdateFile_IndexesEverything(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	content := "---\ntags: [work]\n---\nSee [[notes/plan]] for details."
	if _, err := adapter.WriteNote(ctx, "notes/todo.md", content, &vault.WriteOptions{CreateParents: true}); err != nil {
		t.Fatal(err)
	}

	c := New(adapter, db, nil, nil, fastOptions())
	if err := c.UpdateFile(ctx, "notes/todo.md"); err != nil {
		t.Fatal(err)
	}

	// Searchable under its content.
	hits, err := db.Search(ctx, "details", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "notes/todo.md" || hits[0].Title != "notes/todo" {
		t.Errorf("hits = %v", hits)
	}

	// Outbound link recorded with the raw target.
	out, err := db.Outbound(ctx, "notes/todo.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].TargetRaw != "notes/plan" {
		t.Errorf("outbound = %v", out)
	}

	// Frontmatter tag plus folder-derived tag.
	noteTags, err := db.TagsForNote(ctx, "notes/todo.md")
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]bool, len(noteTags))
	for _, tg := range noteTags {
		got[tg] = true
	}
	if len(noteTags) != 2 || !got["work"] || !got["notes"] {
		t.Errorf("tags = %v, want [work notes]", noteTags)
	}

	// Tag definitions auto-created with humanized display names.
	tag, err := db.GetTag(ctx, "work")
	if err != nil {
		t.Fatal(err)
	}
	if tag.DisplayName != "Work" || tag.CreatedAt == 0 {
		t.Errorf("auto-created tag = %+v", tag)
	}

	// Folder activity reflects the indexed note.
	fa, err := db.FolderActivity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(fa) != 1 || fa[0].Path != "notes" || fa[0].NoteCount != 1 {
		t.Errorf("folder activity = %v", fa)
	}
}

func TestUpdateFile_ScalarTagAndDedup(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	// Frontmatter tag equals the folder-derived tag after normalization.
	content := "---\ntags: Work\n---\nbody"
	if _, err := adapter.WriteNote(ctx, "work/a.md", content, &vault.WriteOptions{CreateParents: true}); err != nil {
		t.Fatal(err)
	}

	c := New(adapter, db, nil, nil, fastOptions())
	if err := c.UpdateFile(ctx, "work/a.md"); err != nil {
		t.Fatal(err)
	}

	noteTags, err := db.TagsForNote(ctx, "work/a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(noteTags) != 1 || noteTags[0] != "work" {
		t.Errorf("tags = %v, want [work]", noteTags)
	}
}

func TestUpdateFile_ExistingTagNotOverwritten(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	// Pre-existing definition with custom display name survives.
	if err := db.UpsertTag(ctx, tagDef("work", "My Work")); err != nil {
		t.Fatal(err)
	}

	if _, err := adapter.WriteNote(ctx, "work/a.md", "body", &vault.WriteOptions{CreateParents: true}); err != nil {
		t.Fatal(err)
	}
	c := New(adapter, db, nil, nil, fastOptions())
	if err := c.UpdateFile(ctx, "work/a.md"); err != nil {
		t.Fatal(err)
	}

	tag, err := db.GetTag(ctx, "work")
	if err != nil {
		t.Fatal(err)
	}
	if tag.DisplayName != "My Work" {
		t.Errorf("display name = %q, want My Work", tag.DisplayName)
	}
}

func TestRemove_ClearsIndexState(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	if _, err := adapter.WriteNote(ctx, "a.md", "alpha [[b]]", nil); err != nil {
		t.Fatal(err)
	}
	c := New(adapter, db, nil, nil, fastOptions())
	if err := c.UpdateFile(ctx, "a.md"); err != nil {
		t.Fatal(err)
	}
	if err := c.Remove(ctx, "a.md"); err != nil {
		t.Fatal(err)
	}

	if hits, _ := db.Search(ctx, "alpha", 0); len(hits) != 0 {
		t.Errorf("removed note still searchable: %v", hits)
	}
	if out, _ := db.Outbound(ctx, "a.md"); len(out) != 0 {
		t.Errorf("outbound survived removal: %v", out)
	}
	if tgs, _ := db.TagsForNote(ctx, "a.md"); len(tgs) != 0 {
		t.Errorf("tags survived removal: %v", tgs)
	}
}

func TestStart_IndexesNewFilesOnly(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	if _, err := adapter.WriteNote(ctx, "old.md", "old content", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := adapter.WriteNote(ctx, "new.md", "new content", nil); err != nil {
		t.Fatal(err)
	}

	// Pretend old.md was indexed long ago with stale content.
	if err := db.UpsertNote(ctx, noteEntry("old.md", "old", "stale words", 1)); err != nil {
		t.Fatal(err)
	}

	c := New(adapter, db, nil, nil, fastOptions())
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// new.md got picked up.
	if hits, _ := db.Search(ctx, "new content", 0); len(hits) != 1 {
		t.Errorf("new file not indexed: %v", hits)
	}
	// old.md was left alone (lazy mode): stale content still there.
	if hits, _ := db.Search(ctx, "stale", 0); len(hits) != 1 {
		t.Errorf("lazy scan re-indexed an existing note")
	}
}

func TestStart_EagerReindexesStaleFiles(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	if _, err := adapter.WriteNote(ctx, "old.md", "fresh words", nil); err != nil {
		t.Fatal(err)
	}
	// Stored mtime far in the past forces an eager re-index.
	if err := db.UpsertNote(ctx, noteEntry("old.md", "old", "stale words", 1)); err != nil {
		t.Fatal(err)
	}

	opts := fastOptions()
	opts.EagerReindex = true
	c := New(adapter, db, nil, nil, opts)
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if hits, _ := db.Search(ctx, "fresh", 0); len(hits) != 1 {
		t.Errorf("eager scan did not refresh stale note")
	}
	if hits, _ := db.Search(ctx, "stale", 0); len(hits) != 0 {
		t.Errorf("stale content still searchable after eager scan")
	}
}

func TestStart_OneShot(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	c := New(adapter, db, nil, nil, fastOptions())
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// A file appearing after the first scan is not picked up by a second
	// Start call; that is the watcher's job.
	if _, err := adapter.WriteNote(ctx, "late.md", "late", nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if hits, _ := db.Search(ctx, "late", 0); len(hits) != 0 {
		t.Errorf("second Start ran a scan: %v", hits)
	}
}

func TestHandleEvent_MutatesThenBroadcasts(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	var mu sync.Mutex
	var broadcastEvents []watcher.Event
	broadcast := func(_ context.Context, ev watcher.Event) {
		mu.Lock()
		broadcastEvents = append(broadcastEvents, ev)
		mu.Unlock()
	}

	if _, err := adapter.WriteNote(ctx, "a.md", "hello", nil); err != nil {
		t.Fatal(err)
	}

	c := New(adapter, db, broadcast, nil, fastOptions())
	c.HandleEvent(ctx, watcher.Event{Kind: watcher.Created, Path: "a.md"})

	if hits, _ := db.Search(ctx, "hello", 0); len(hits) != 1 {
		t.Errorf("event did not index the note: %v", hits)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(broadcastEvents) != 1 || broadcastEvents[0].Path != "a.md" {
		t.Errorf("broadcast = %v", broadcastEvents)
	}
}

func TestHandleEvent_IgnoresNonMarkdown(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	called := false
	broadcast := func(_ context.Context, _ watcher.Event) { called = true }

	c := New(adapter, db, broadcast, nil, fastOptions())
	c.HandleEvent(ctx, watcher.Event{Kind: watcher.Created, Path: "image.png"})
	if called {
		t.Error("non-markdown event was broadcast")
	}
}

func TestHandleEvent_ReadFailureSwallowed(t *testing.T) {
	db := testutil.TestDB(t)
	_, adapter := testutil.TestVault(t)
	ctx := context.Background()

	called := false
	broadcast := func(_ context.Context, _ watcher.Event) { called = true }

	c := New(adapter, db, broadcast, nil, fastOptions())
	// Created event for a file that vanished before we could read it.
	c.HandleEvent(ctx, watcher.Event{Kind: watcher.Created, Path: "ghost.md"})
	if called {
		t.Error("failed event was broadcast")
	}
}
