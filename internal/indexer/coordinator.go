// Package indexer orchestrates the initial background scan and the
// per-file index updates driven by watcher events and explicit writes.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/liminal-notes/vaultcore/internal/index"
	"github.com/liminal-notes/vaultcore/internal/parser"
	"github.com/liminal-notes/vaultcore/internal/tags"
	"github.com/liminal-notes/vaultcore/internal/vault"
	"github.com/liminal-notes/vaultcore/internal/watcher"
)

const (
	// DefaultSettleDelay postpones the background scan so the host can
	// finish its own startup work first.
	DefaultSettleDelay = 2 * time.Second
	// DefaultYieldDelay is the pause between backlog items. Serial
	// processing with a fixed yield keeps startup I/O from starving
	// interactive work; this trades throughput for latency on purpose.
	DefaultYieldDelay = 50 * time.Millisecond
)

// Options tunes coordinator behavior.
type Options struct {
	SettleDelay time.Duration
	YieldDelay  time.Duration
	// EagerReindex additionally re-indexes already-indexed files whose
	// on-disk mtime moved past the stored one. The default is lazy:
	// the startup scan indexes new files only, and staleness heals via
	// watcher events or explicit updates.
	EagerReindex bool
}

// Coordinator is the sole writer to the index store. All mutations are
// serialized through its event handlers and the one-time background
// scan; readers may run concurrently.
type Coordinator struct {
	adapter   vault.Adapter
	store     index.Store
	logger    *slog.Logger
	broadcast watcher.Handler

	settleDelay time.Duration
	yieldDelay  time.Duration
	eager       bool

	scanStarted atomic.Bool
	indexing    atomic.Bool
}

// New creates a coordinator. broadcast, if non-nil, receives every
// handled watcher event after the index mutation completes (the
// process-wide event channel for UI collaborators).
func New(adapter vault.Adapter, store index.Store, broadcast watcher.Handler, logger *slog.Logger, opts *Options) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		adapter:     adapter,
		store:       store,
		logger:      logger,
		broadcast:   broadcast,
		settleDelay: DefaultSettleDelay,
		yieldDelay:  DefaultYieldDelay,
	}
	if opts != nil {
		if opts.SettleDelay > 0 {
			c.settleDelay = opts.SettleDelay
		}
		if opts.YieldDelay > 0 {
			c.yieldDelay = opts.YieldDelay
		}
		c.eager = opts.EagerReindex
	}
	return c
}

// Indexing reports whether the background scan is in flight.
func (c *Coordinator) Indexing() bool {
	return c.indexing.Load()
}

// Start runs the initial background scan. It is a one-shot per process
// lifetime: repeated calls return immediately. The scan indexes files
// present on disk but absent from the store; already-indexed files with
// changed mtimes are left to lazy healing unless EagerReindex is set.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.scanStarted.CompareAndSwap(false, true) {
		return nil
	}
	c.indexing.Store(true)
	defer c.indexing.Store(false)

	select {
	case <-time.After(c.settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	entries, err := c.adapter.ListFiles(ctx, nil)
	if err != nil {
		return fmt.Errorf("indexer: list vault: %w", err)
	}
	existing, err := c.store.AllNotes(ctx)
	if err != nil {
		return fmt.Errorf("indexer: read indexed notes: %w", err)
	}

	var backlog []string
	for _, e := range entries {
		if e.Type != vault.EntryFile || !strings.HasSuffix(e.ID, ".md") {
			continue
		}
		stored, ok := existing[e.ID]
		if !ok {
			backlog = append(backlog, e.ID)
			continue
		}
		if c.eager && e.MtimeMs > stored {
			backlog = append(backlog, e.ID)
		}
	}
	sort.Strings(backlog)

	c.logger.Info("indexer: background scan starting", slog.Int("backlog", len(backlog)))

	for _, id := range backlog {
		select {
		case <-time.After(c.yieldDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := c.UpdateFile(ctx, id); err != nil {
			// Per-file failures never abort the backlog loop.
			c.logger.Warn("indexer: index failed",
				slog.String("path", id), slog.String("error", err.Error()))
		}
	}

	c.logger.Info("indexer: background scan complete")
	return nil
}

// UpdateFile re-indexes a single note: search row, outbound links, and
// tag associations are each replaced wholesale from the current content.
func (c *Coordinator) UpdateFile(ctx context.Context, id string) error {
	note, err := c.adapter.ReadNote(ctx, id)
	if err != nil {
		return fmt.Errorf("indexer: read %s: %w", id, err)
	}

	mtime := note.MtimeMs
	if mtime == 0 {
		mtime = time.Now().UnixMilli()
	}
	if err := c.store.UpsertNote(ctx, index.NoteEntry{
		ID:      id,
		Title:   parser.DeriveTitle(id),
		Content: note.Content,
		MtimeMs: mtime,
	}); err != nil {
		return err
	}

	// Resolve link targets against the currently indexed note set. An
	// unresolved target keeps its .md candidate path so the edge matches
	// once the target note is created.
	matches := parser.ParseWikilinks(note.Content)
	var ids []string
	if len(matches) > 0 {
		known, err := c.store.AllNotes(ctx)
		if err != nil {
			return err
		}
		ids = make([]string, 0, len(known))
		for nid := range known {
			ids = append(ids, nid)
		}
	}
	var links []index.Link
	for _, m := range matches {
		target := parser.ResolveTarget(m.TargetRaw, ids)
		if target == "" {
			target = m.TargetRaw
			if !strings.HasSuffix(target, ".md") {
				target += ".md"
			}
		}
		links = append(links, index.Link{
			Source:     id,
			TargetRaw:  m.TargetRaw,
			TargetPath: target,
		})
	}
	if err := c.store.UpsertLinks(ctx, id, links); err != nil {
		return err
	}

	noteTags := c.collectTags(ctx, id, note.Content)
	if err := c.ensureTags(ctx, noteTags); err != nil {
		return err
	}
	return c.store.SetNoteTags(ctx, id, noteTags)
}

// Remove clears a deleted note from the search store, drops its
// outbound links, and empties its tag set. Inbound links pointing at
// the deleted id are left dangling.
func (c *Coordinator) Remove(ctx context.Context, id string) error {
	if err := c.store.RemoveNote(ctx, id); err != nil {
		return err
	}
	if err := c.store.RemoveSource(ctx, id); err != nil {
		return err
	}
	return c.store.SetNoteTags(ctx, id, nil)
}

// HandleEvent applies a watcher event to the index and forwards it to
// the broadcast channel. Non-markdown paths are ignored.
func (c *Coordinator) HandleEvent(ctx context.Context, ev watcher.Event) {
	if !strings.HasSuffix(ev.Path, ".md") {
		return
	}

	var err error
	switch ev.Kind {
	case watcher.Created, watcher.Modified:
		err = c.UpdateFile(ctx, ev.Path)
	case watcher.Deleted:
		err = c.Remove(ctx, ev.Path)
	}
	if err != nil {
		c.logger.Warn("indexer: event handling failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("path", ev.Path),
			slog.String("error", err.Error()))
		return
	}

	if c.broadcast != nil {
		c.broadcast(ctx, ev)
	}
}

// collectTags unions frontmatter-declared tags (array or scalar) with
// folder-derived tags, normalized and deduplicated.
func (c *Coordinator) collectTags(ctx context.Context, id, content string) []string {
	fm, _ := parser.ParseFrontmatter(content)

	seen := make(map[string]struct{})
	var out []string
	add := func(raw string) {
		t := tags.NormalizeID(raw)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			add(fmt.Sprintf("%v", item))
		}
	case string:
		add(v)
	case nil:
	default:
		add(fmt.Sprintf("%v", v))
	}

	for _, t := range tags.DeriveFromPath(id) {
		add(t)
	}
	return out
}

// ensureTags auto-creates definitions for tag ids not yet in the tag
// table, with a humanized display name.
func (c *Coordinator) ensureTags(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := c.store.GetTag(ctx, id); err == nil {
			continue
		}
		tag := tags.Tag{
			ID:          id,
			DisplayName: tags.Humanize(id),
			CreatedAt:   time.Now().UnixMilli(),
		}
		if err := c.store.UpsertTag(ctx, tag); err != nil {
			return err
		}
	}
	return nil
}
