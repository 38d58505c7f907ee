package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liminal-notes/vaultcore/internal/apperr"
	"github.com/liminal-notes/vaultcore/internal/vault"
)

// CatalogueFile is the fixed vault-relative path of the tag catalogue.
// It lives inside the vault tree so it travels with the vault.
const CatalogueFile = ".liminal/tags.json"

// Store is the subset of the index store the catalogue mirrors into.
type Store interface {
	UpsertTag(ctx context.Context, tag Tag) error
	DeleteTag(ctx context.Context, id string) error
}

// Catalogue reconciles the JSON tag catalogue with the index store. The
// JSON document is the source of truth for tag metadata; the store copy
// exists so indexed queries can join against it.
type Catalogue struct {
	adapter vault.Adapter
	store   Store
	logger  *slog.Logger

	mu   sync.RWMutex
	tags map[string]Tag

	saving atomic.Bool
}

// NewCatalogue creates an empty catalogue. Call Load before use.
func NewCatalogue(adapter vault.Adapter, store Store, logger *slog.Logger) *Catalogue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalogue{
		adapter: adapter,
		store:   store,
		logger:  logger,
		tags:    make(map[string]Tag),
	}
}

// Load reads the catalogue JSON and pushes every entry into the store.
// A missing file is an empty catalogue, not an error. On conflict the
// JSON wins.
func (c *Catalogue) Load(ctx context.Context) error {
	loaded := make(map[string]Tag)

	note, err := c.adapter.ReadNote(ctx, CatalogueFile)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		// First run; nothing persisted yet.
	case err != nil:
		return fmt.Errorf("tags: load catalogue: %w", err)
	default:
		if jsonErr := json.Unmarshal([]byte(note.Content), &loaded); jsonErr != nil {
			return fmt.Errorf("tags: parse catalogue: %w", jsonErr)
		}
	}

	for id, tag := range loaded {
		tag.ID = id
		if err := c.store.UpsertTag(ctx, tag); err != nil {
			c.logger.Warn("tags: mirror to store failed",
				slog.String("tag", id), slog.String("error", err.Error()))
		}
	}

	c.mu.Lock()
	c.tags = loaded
	c.mu.Unlock()
	return nil
}

// All returns a copy of every tag definition.
func (c *Catalogue) All() []Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tag, 0, len(c.tags))
	for _, t := range c.tags {
		out = append(out, t)
	}
	return out
}

// Get returns a tag definition by id.
func (c *Catalogue) Get(id string) (Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tags[id]
	return t, ok
}

// Add creates a tag from a raw label. Adding an existing id is a no-op.
func (c *Catalogue) Add(ctx context.Context, input string) (Tag, error) {
	id := NormalizeID(input)
	if id == "" {
		return Tag{}, fmt.Errorf("tags: empty tag id from %q: %w", input, apperr.ErrInvalidPath)
	}

	c.mu.Lock()
	if existing, ok := c.tags[id]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	tag := Tag{
		ID:          id,
		DisplayName: trimmedOr(input, Humanize(id)),
		CreatedAt:   time.Now().UnixMilli(),
	}
	c.tags[id] = tag
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return tag, c.persist(ctx, snapshot, tag)
}

// Update replaces an existing tag definition.
func (c *Catalogue) Update(ctx context.Context, tag Tag) error {
	c.mu.Lock()
	if _, ok := c.tags[tag.ID]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("tags: update %s: %w", tag.ID, apperr.ErrNotFound)
	}
	c.tags[tag.ID] = tag
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return c.persist(ctx, snapshot, tag)
}

// Delete removes a tag definition and its store row. Note-tag
// associations referencing the deleted tag are left in place.
func (c *Catalogue) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.tags, id)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.save(ctx, snapshot); err != nil {
		return err
	}
	if err := c.store.DeleteTag(ctx, id); err != nil {
		return fmt.Errorf("tags: delete from store: %w", err)
	}
	return nil
}

func (c *Catalogue) persist(ctx context.Context, snapshot map[string]Tag, changed Tag) error {
	if err := c.save(ctx, snapshot); err != nil {
		return err
	}
	if err := c.store.UpsertTag(ctx, changed); err != nil {
		return fmt.Errorf("tags: mirror to store: %w", err)
	}
	return nil
}

// save persists the full catalogue back to JSON. A save while another is
// in flight is dropped, not queued, to avoid interleaved partial writes.
func (c *Catalogue) save(ctx context.Context, snapshot map[string]Tag) error {
	if !c.saving.CompareAndSwap(false, true) {
		c.logger.Debug("tags: save dropped, another in flight")
		return nil
	}
	defer c.saving.Store(false)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("tags: marshal catalogue: %w", err)
	}
	_, err = c.adapter.WriteNote(ctx, CatalogueFile, string(data), &vault.WriteOptions{CreateParents: true})
	if err != nil {
		return fmt.Errorf("tags: write catalogue: %w", err)
	}
	return nil
}

func (c *Catalogue) snapshotLocked() map[string]Tag {
	out := make(map[string]Tag, len(c.tags))
	for id, t := range c.tags {
		out[id] = t
	}
	return out
}

func trimmedOr(input, fallback string) string {
	if s := strings.TrimSpace(input); s != "" {
		return s
	}
	return fallback
}
