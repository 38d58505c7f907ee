package vault

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/liminal-notes/vaultcore/internal/apperr"
)

// FS implements Adapter on a sandboxed local directory.
type FS struct {
	root   string // absolute path to vault directory
	logger *slog.Logger
}

// NewFS creates an FS adapter rooted at the given directory. The
// directory must already exist.
func NewFS(root string, logger *slog.Logger) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{root: abs, logger: logger}, nil
}

// abs validates id and resolves it against the vault root.
func (f *FS) abs(id string) (string, string, error) {
	safe, err := AssertSafe(id)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(safe)), safe, nil
}

// ListFiles walks the vault tree. Unreadable subtrees are logged and
// skipped so a single bad directory cannot abort the listing.
func (f *FS) ListFiles(ctx context.Context, opts *ListOptions) ([]FileEntry, error) {
	if opts == nil {
		opts = &ListOptions{}
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".md"}
	}

	var out []FileEntry
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkErr != nil {
			f.logger.Warn("vault: list skipping unreadable entry",
				slog.String("path", p), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == f.root {
			return nil
		}
		if !opts.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return nil
		}
		id := filepath.ToSlash(rel)

		if d.IsDir() {
			info, infoErr := d.Info()
			entry := FileEntry{ID: id, Type: EntryDirectory}
			if infoErr == nil {
				entry.MtimeMs = info.ModTime().UnixMilli()
			}
			out = append(out, entry)
			return nil
		}

		if !matchExt(d.Name(), exts) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			f.logger.Warn("vault: list skipping entry without info",
				slog.String("path", id), slog.String("error", infoErr.Error()))
			return nil
		}
		out = append(out, FileEntry{
			ID:        id,
			Type:      EntryFile,
			MtimeMs:   info.ModTime().UnixMilli(),
			SizeBytes: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: list: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ReadNote returns the content of a vault file.
func (f *FS) ReadNote(ctx context.Context, id string) (Note, error) {
	abs, safe, err := f.abs(id)
	if err != nil {
		return Note{}, err
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return Note{}, fmt.Errorf("vault: read %s: %w", safe, apperr.ErrNotFound)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Note{}, fmt.Errorf("vault: read %s: %w", safe, apperr.ErrNotFound)
		}
		return Note{}, fmt.Errorf("vault: read %s: %v: %w", safe, err, apperr.ErrStorageUnavailable)
	}
	return Note{ID: safe, Content: string(data), MtimeMs: info.ModTime().UnixMilli()}, nil
}

// WriteNote atomically writes content: tmp file, fsync, rename.
func (f *FS) WriteNote(ctx context.Context, id string, content string, opts *WriteOptions) (WriteResult, error) {
	abs, safe, err := f.abs(id)
	if err != nil {
		return WriteResult{}, err
	}
	dir := filepath.Dir(abs)
	if _, statErr := os.Stat(dir); statErr != nil {
		if opts == nil || !opts.CreateParents {
			return WriteResult{}, fmt.Errorf("vault: write %s: parent directory missing: %w", safe, apperr.ErrNotFound)
		}
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return WriteResult{}, fmt.Errorf("vault: mkdir: %v: %w", mkErr, apperr.ErrStorageUnavailable)
		}
	}

	tmp, err := os.CreateTemp(dir, ".vault-tmp-*")
	if err != nil {
		return WriteResult{}, fmt.Errorf("vault: create temp: %v: %w", err, apperr.ErrStorageUnavailable)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return WriteResult{}, fmt.Errorf("vault: write temp: %v: %w", err, apperr.ErrStorageUnavailable)
	}
	if err := tmp.Sync(); err != nil {
		return WriteResult{}, fmt.Errorf("vault: fsync: %v: %w", err, apperr.ErrStorageUnavailable)
	}
	if err := tmp.Close(); err != nil {
		return WriteResult{}, fmt.Errorf("vault: close temp: %v: %w", err, apperr.ErrStorageUnavailable)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return WriteResult{}, fmt.Errorf("vault: rename temp: %v: %w", err, apperr.ErrStorageUnavailable)
	}
	success = true

	res := WriteResult{ID: safe}
	if info, statErr := os.Stat(abs); statErr == nil {
		res.MtimeMs = info.ModTime().UnixMilli()
	}
	return res, nil
}

// Rename moves a vault entry, creating destination parents as needed.
func (f *FS) Rename(ctx context.Context, from, to string) error {
	absFrom, safeFrom, err := f.abs(from)
	if err != nil {
		return err
	}
	absTo, safeTo, err := f.abs(to)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absFrom); err != nil {
		return fmt.Errorf("vault: rename %s: %w", safeFrom, apperr.ErrNotFound)
	}
	if _, err := os.Stat(absTo); err == nil {
		return fmt.Errorf("vault: rename to %s: %w", safeTo, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(absTo), 0o755); err != nil {
		return fmt.Errorf("vault: mkdir for rename: %v: %w", err, apperr.ErrStorageUnavailable)
	}
	if err := os.Rename(absFrom, absTo); err != nil {
		return fmt.Errorf("vault: rename: %v: %w", err, apperr.ErrStorageUnavailable)
	}
	return nil
}

// Stat returns statistics for a file or directory.
func (f *FS) Stat(ctx context.Context, id string) (Stat, error) {
	abs, safe, err := f.abs(id)
	if err != nil {
		return Stat{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Stat{}, fmt.Errorf("vault: stat %s: %w", safe, apperr.ErrNotFound)
	}
	return Stat{
		MtimeMs:     info.ModTime().UnixMilli(),
		Size:        info.Size(),
		IsFile:      !info.IsDir(),
		IsDirectory: info.IsDir(),
	}, nil
}

// Mkdir creates a directory under the vault root.
func (f *FS) Mkdir(ctx context.Context, path string, opts *MkdirOptions) error {
	abs, safe, err := f.abs(path)
	if err != nil {
		return err
	}
	if opts != nil && opts.Recursive {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return fmt.Errorf("vault: mkdir %s: %v: %w", safe, err, apperr.ErrStorageUnavailable)
		}
		return nil
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("vault: mkdir %s: parent missing: %w", safe, apperr.ErrNotFound)
		}
		return fmt.Errorf("vault: mkdir %s: %v: %w", safe, err, apperr.ErrStorageUnavailable)
	}
	return nil
}

func matchExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Verify *FS satisfies Adapter at compile time.
var _ Adapter = (*FS)(nil)
