// Package home maintains the user-facing catalogue backing the home
// surface: pinned items, recently opened notes, and folder activity.
package home

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/liminal-notes/vaultcore/internal/index"
	"github.com/liminal-notes/vaultcore/internal/vault"
)

const (
	pinnedKey  = "home.pinned"
	recentsKey = "home.recents"

	// maxRecents bounds the MRU list.
	maxRecents = 10
)

// PinnedItem is a user-pinned note or folder.
type PinnedItem struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "note" or "folder"
	PinnedAt int64  `json:"pinnedAt"`
}

// RecentItem is one entry of the recently-opened list.
type RecentItem struct {
	ID       string `json:"id"`
	OpenedAt int64  `json:"openedAt"`
}

// Catalogue serves pins, recents, and merged folder listings.
type Catalogue struct {
	db      *index.DB
	adapter vault.Adapter

	mu sync.Mutex // serializes read-modify-write cycles on the KV rows
}

// NewCatalogue creates a home catalogue backed by the index KV table.
func NewCatalogue(db *index.DB, adapter vault.Adapter) *Catalogue {
	return &Catalogue{db: db, adapter: adapter}
}

// Pinned returns all pinned items, most recently pinned first.
func (c *Catalogue) Pinned(ctx context.Context) ([]PinnedItem, error) {
	var items []PinnedItem
	if _, err := c.db.KVGetJSON(ctx, pinnedKey, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Pin adds an item to the pinned list. Pinning twice is a no-op.
func (c *Catalogue) Pin(ctx context.Context, id, itemType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.Pinned(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ID == id {
			return nil
		}
	}
	items = append([]PinnedItem{{ID: id, Type: itemType, PinnedAt: time.Now().UnixMilli()}}, items...)
	return c.db.KVSetJSON(ctx, pinnedKey, items)
}

// Unpin removes an item from the pinned list.
func (c *Catalogue) Unpin(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.Pinned(ctx)
	if err != nil {
		return err
	}
	filtered := items[:0]
	for _, item := range items {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}
	return c.db.KVSetJSON(ctx, pinnedKey, filtered)
}

// Recents returns the recently-opened list, newest first.
func (c *Catalogue) Recents(ctx context.Context) ([]RecentItem, error) {
	var items []RecentItem
	if _, err := c.db.KVGetJSON(ctx, recentsKey, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Touch moves a note to the top of the recents list, trimming to the
// MRU bound.
func (c *Catalogue) Touch(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.Recents(ctx)
	if err != nil {
		return err
	}
	filtered := make([]RecentItem, 0, len(items)+1)
	filtered = append(filtered, RecentItem{ID: id, OpenedAt: time.Now().UnixMilli()})
	for _, item := range items {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}
	if len(filtered) > maxRecents {
		filtered = filtered[:maxRecents]
	}
	return c.db.KVSetJSON(ctx, recentsKey, filtered)
}

// Forget drops a note from the recents list.
func (c *Catalogue) Forget(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.Recents(ctx)
	if err != nil {
		return err
	}
	filtered := items[:0]
	for _, item := range items {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}
	return c.db.KVSetJSON(ctx, recentsKey, filtered)
}

// Folders merges index-derived folder activity with top-level
// directories listed by the adapter, so empty folders still appear
// (with zero counts). Sorted most recently active first, then by name.
func (c *Catalogue) Folders(ctx context.Context) ([]index.FolderActivity, error) {
	active, err := c.db.FolderActivity(ctx)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]index.FolderActivity, len(active))
	for _, f := range active {
		merged[f.Path] = f
	}

	entries, err := c.adapter.ListFiles(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		var top string
		if slash := strings.Index(e.ID, "/"); slash > 0 {
			top = e.ID[:slash]
		} else if e.Type == vault.EntryDirectory {
			top = e.ID
		} else {
			continue
		}
		if _, ok := merged[top]; !ok {
			merged[top] = index.FolderActivity{Path: top, LastActive: e.MtimeMs}
		}
	}

	out := make([]index.FolderActivity, 0, len(merged))
	for _, f := range merged {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActive != out[j].LastActive {
			return out[i].LastActive > out[j].LastActive
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}
