// Package vault defines the storage backend contract and path safety
// rules for vault-relative note identifiers.
package vault

import "context"

// EntryType distinguishes files from directories in listings.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
)

// FileEntry is one row of a vault listing. ID is the vault-relative
// slash-separated path; listings are sorted by ID ascending for
// determinism.
type FileEntry struct {
	ID        string    `json:"id"`
	Type      EntryType `json:"type"`
	MtimeMs   int64     `json:"mtimeMs,omitempty"`
	SizeBytes int64     `json:"sizeBytes,omitempty"`
}

// Stat holds basic file statistics.
type Stat struct {
	MtimeMs     int64
	Size        int64
	IsFile      bool
	IsDirectory bool
}

// Note is the result of reading a vault file.
type Note struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	MtimeMs int64  `json:"mtimeMs,omitempty"`
}

// WriteResult reports the outcome of a write.
type WriteResult struct {
	ID      string `json:"id"`
	MtimeMs int64  `json:"mtimeMs,omitempty"`
}

// ListOptions filters a recursive listing.
type ListOptions struct {
	// IncludeHidden includes dot-prefixed entries.
	IncludeHidden bool
	// Extensions restricts file entries to the given extensions
	// (e.g. ".md"). Defaults to markdown only. Directories are always
	// listed regardless.
	Extensions []string
}

// WriteOptions controls write behavior.
type WriteOptions struct {
	// CreateParents creates missing intermediate directories. When
	// false, a write into a missing directory fails with ErrNotFound.
	CreateParents bool
}

// MkdirOptions controls directory creation.
type MkdirOptions struct {
	Recursive bool
}

// Adapter is the uniform contract over a storage backend. The engine is
// backend-agnostic: sandbox filesystem, tree-URI, and scoped-bookmark
// backends all satisfy the same interface. Every path argument must
// pass AssertSafe; adapters reject invalid input rather than coerce it.
type Adapter interface {
	// ListFiles recursively lists entries under the vault root, sorted
	// by ID ascending. An unreadable subtree is logged and skipped; it
	// never aborts the whole listing.
	ListFiles(ctx context.Context, opts *ListOptions) ([]FileEntry, error)
	// ReadNote returns the content of a file, or ErrNotFound.
	ReadNote(ctx context.Context, id string) (Note, error)
	// WriteNote overwrites content unconditionally (last-write-wins).
	WriteNote(ctx context.Context, id string, content string, opts *WriteOptions) (WriteResult, error)
	// Rename moves from to to. ErrNotFound when from is absent,
	// ErrAlreadyExists when to is present. Destination parent
	// directories are created as needed.
	Rename(ctx context.Context, from, to string) error
	// Stat returns file statistics, or ErrNotFound.
	Stat(ctx context.Context, id string) (Stat, error)
	// Mkdir creates a directory.
	Mkdir(ctx context.Context, path string, opts *MkdirOptions) error
}
