package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/liminal-notes/vaultcore/internal/apperr"
	"github.com/liminal-notes/vaultcore/internal/vault"
)

// fakeAdapter is an in-memory Adapter with settable file mtimes.
type fakeAdapter struct {
	mu    sync.Mutex
	files map[string]int64
}

func newFakeAdapter(files map[string]int64) *fakeAdapter {
	copied := make(map[string]int64, len(files))
	for k, v := range files {
		copied[k] = v
	}
	return &fakeAdapter{files: copied}
}

func (a *fakeAdapter) set(id string, mtime int64) {
	a.mu.Lock()
	a.files[id] = mtime
	a.mu.Unlock()
}

func (a *fakeAdapter) remove(id string) {
	a.mu.Lock()
	delete(a.files, id)
	a.mu.Unlock()
}

func (a *fakeAdapter) ListFiles(ctx context.Context, opts *vault.ListOptions) ([]vault.FileEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []vault.FileEntry
	for id, mtime := range a.files {
		out = append(out, vault.FileEntry{ID: id, Type: vault.EntryFile, MtimeMs: mtime})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *fakeAdapter) ReadNote(ctx context.Context, id string) (vault.Note, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	mtime, ok := a.files[id]
	if !ok {
		return vault.Note{}, fmt.Errorf("fake: read %s: %w", id, apperr.ErrNotFound)
	}
	return vault.Note{ID: id, MtimeMs: mtime}, nil
}

func (a *fakeAdapter) WriteNote(ctx context.Context, id, content string, opts *vault.WriteOptions) (vault.WriteResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[id] = a.files[id] + 1
	return vault.WriteResult{ID: id, MtimeMs: a.files[id]}, nil
}

func (a *fakeAdapter) Rename(ctx context.Context, from, to string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	mtime, ok := a.files[from]
	if !ok {
		return apperr.ErrNotFound
	}
	delete(a.files, from)
	a.files[to] = mtime
	return nil
}

func (a *fakeAdapter) Stat(ctx context.Context, id string) (vault.Stat, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	mtime, ok := a.files[id]
	if !ok {
		return vault.Stat{}, apperr.ErrNotFound
	}
	return vault.Stat{MtimeMs: mtime, IsFile: true}, nil
}

func (a *fakeAdapter) Mkdir(ctx context.Context, path string, opts *vault.MkdirOptions) error {
	return nil
}

var _ vault.Adapter = (*fakeAdapter)(nil)

// gatedAdapter parks every ListFiles call until release is closed,
// signalling entry on entered.
type gatedAdapter struct {
	*fakeAdapter
	entered chan struct{}
	release chan struct{}
}

func newGatedAdapter(files map[string]int64) *gatedAdapter {
	return &gatedAdapter{
		fakeAdapter: newFakeAdapter(files),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
}

func (a *gatedAdapter) ListFiles(ctx context.Context, opts *vault.ListOptions) ([]vault.FileEntry, error) {
	a.entered <- struct{}{}
	<-a.release
	return a.fakeAdapter.ListFiles(ctx, opts)
}

// eventRecorder collects emitted events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) handler(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestPoller_InitIsSilent(t *testing.T) {
	adapter := newFakeAdapter(map[string]int64{"a.md": 1, "b.md": 2})
	rec := &eventRecorder{}
	p := NewPoller(adapter, time.Minute, rec.handler, nil)

	if err := p.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if events := rec.all(); len(events) != 0 {
		t.Errorf("init emitted events: %v", events)
	}
}

func TestPoller_DiffDetection(t *testing.T) {
	adapter := newFakeAdapter(map[string]int64{"a.md": 1, "b.md": 2})
	rec := &eventRecorder{}
	p := NewPoller(adapter, time.Minute, rec.handler, nil)
	ctx := context.Background()

	if err := p.Init(ctx); err != nil {
		t.Fatal(err)
	}

	adapter.set("b.md", 3)
	adapter.set("c.md", 1)
	if err := p.Scan(ctx); err != nil {
		t.Fatal(err)
	}

	events := rec.all()
	if len(events) != 2 {
		t.Fatalf("events = %v, want modified b.md and created c.md", events)
	}
	kinds := make(map[string]Kind)
	for _, ev := range events {
		kinds[ev.Path] = ev.Kind
	}
	if kinds["b.md"] != Modified {
		t.Errorf("b.md = %v, want modified", kinds["b.md"])
	}
	if kinds["c.md"] != Created {
		t.Errorf("c.md = %v, want created", kinds["c.md"])
	}
}

func TestPoller_EqualMtimeNotModified(t *testing.T) {
	adapter := newFakeAdapter(map[string]int64{"a.md": 5})
	rec := &eventRecorder{}
	p := NewPoller(adapter, time.Minute, rec.handler, nil)
	ctx := context.Background()

	if err := p.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if events := rec.all(); len(events) != 0 {
		t.Errorf("unchanged vault emitted events: %v", events)
	}
}

func TestPoller_DeleteDetection(t *testing.T) {
	adapter := newFakeAdapter(map[string]int64{"a.md": 1, "b.md": 2})
	rec := &eventRecorder{}
	p := NewPoller(adapter, time.Minute, rec.handler, nil)
	ctx := context.Background()

	if err := p.Init(ctx); err != nil {
		t.Fatal(err)
	}
	adapter.remove("a.md")
	if err := p.Scan(ctx); err != nil {
		t.Fatal(err)
	}

	events := rec.all()
	if len(events) != 1 || events[0].Kind != Deleted || events[0].Path != "a.md" {
		t.Errorf("events = %v, want deleted a.md", events)
	}
}

func TestPoller_NotifyInternalWriteSuppressesEvent(t *testing.T) {
	adapter := newFakeAdapter(map[string]int64{"a.md": 1})
	rec := &eventRecorder{}
	p := NewPoller(adapter, time.Minute, rec.handler, nil)
	ctx := context.Background()

	if err := p.Init(ctx); err != nil {
		t.Fatal(err)
	}

	// Engine-initiated write: mtime moves, snapshot pre-updated.
	adapter.set("a.md", 9)
	p.NotifyInternalWrite(ctx, "a.md")

	if err := p.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if events := rec.all(); len(events) != 0 {
		t.Errorf("internal write surfaced as events: %v", events)
	}
}

func TestPoller_ConcurrentScanDropped(t *testing.T) {
	adapter := newGatedAdapter(map[string]int64{"a.md": 1})
	rec := &eventRecorder{}
	p := NewPoller(adapter, time.Minute, rec.handler, nil)
	ctx := context.Background()

	// First scan parks inside the adapter listing.
	firstDone := make(chan error, 1)
	go func() { firstDone <- p.Scan(ctx) }()
	<-adapter.entered

	// A second scan while one is in flight returns immediately: it must
	// neither wait for the first nor run its own listing.
	secondDone := make(chan error, 1)
	go func() { secondDone <- p.Scan(ctx) }()
	select {
	case err := <-secondDone:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent scan waited instead of being dropped")
	}
	select {
	case <-adapter.entered:
		t.Fatal("dropped scan still listed the vault")
	default:
	}
	if events := rec.all(); len(events) != 0 {
		t.Errorf("dropped scan emitted events: %v", events)
	}

	close(adapter.release)
	if err := <-firstDone; err != nil {
		t.Fatal(err)
	}

	// Only the first scan diffed: one created event for the seed file.
	events := rec.all()
	if len(events) != 1 || events[0].Kind != Created || events[0].Path != "a.md" {
		t.Errorf("events = %v, want single created a.md", events)
	}
}

func TestPoller_StartAndResume(t *testing.T) {
	adapter := newFakeAdapter(map[string]int64{"a.md": 1})
	rec := &eventRecorder{}
	p := NewPoller(adapter, time.Hour, rec.handler, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Init(ctx); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		_ = p.Start(ctx)
		close(done)
	}()

	adapter.set("b.md", 1)
	p.Resume()

	deadline := time.After(2 * time.Second)
	for {
		if len(rec.all()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for resume-triggered scan")
		case <-time.After(10 * time.Millisecond):
		}
	}
	events := rec.all()
	if events[0].Kind != Created || events[0].Path != "b.md" {
		t.Errorf("events = %v, want created b.md", events)
	}

	p.Dispose()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after dispose")
	}
}
