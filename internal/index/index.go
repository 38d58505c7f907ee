package index

import (
	"context"

	"github.com/liminal-notes/vaultcore/internal/tags"
)

// Store defines the index operations the engine depends on. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Store interface {
	UpsertNote(ctx context.Context, entry NoteEntry) error
	RemoveNote(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	AllNotes(ctx context.Context) (map[string]int64, error)
	FolderActivity(ctx context.Context) ([]FolderActivity, error)

	UpsertLinks(ctx context.Context, source string, links []Link) error
	Outbound(ctx context.Context, source string) ([]Link, error)
	Backlinks(ctx context.Context, target string) ([]Link, error)
	RemoveSource(ctx context.Context, source string) error

	UpsertTag(ctx context.Context, tag tags.Tag) error
	GetTag(ctx context.Context, id string) (tags.Tag, error)
	AllTags(ctx context.Context) ([]tags.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	SetNoteTags(ctx context.Context, noteID string, tagIDs []string) error
	TagsForNote(ctx context.Context, noteID string) ([]string, error)
	NotesForTag(ctx context.Context, tagID string) ([]string, error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
