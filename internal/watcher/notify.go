package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notify is the event-driven ChangeSource for deployments where the
// platform offers native file-system notifications. It satisfies the
// same created/modified/deleted contract as the Poller.
type Notify struct {
	root    string
	logger  *slog.Logger
	handler Handler

	mu       sync.Mutex // guards internal-write suppression map
	internal map[string]time.Time

	done chan struct{}
	once sync.Once
}

// internalWriteWindow is how long an engine-initiated write suppresses
// the matching fsnotify event.
const internalWriteWindow = 2 * time.Second

// NewNotify creates an fsnotify-backed change source watching the vault
// root directory.
func NewNotify(root string, handler Handler, logger *slog.Logger) *Notify {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notify{
		root:     root,
		logger:   logger,
		handler:  handler,
		internal: make(map[string]time.Time),
		done:     make(chan struct{}),
	}
}

// Init validates the root. No snapshot is needed: fsnotify only reports
// changes after the watch begins, so pre-existing files emit nothing.
func (n *Notify) Init(ctx context.Context) error {
	_, err := os.Stat(n.root)
	return err
}

// Start watches the vault tree until ctx is cancelled. New directories
// created at runtime are added to the watch list automatically.
func (n *Notify) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, n.root); err != nil {
		return err
	}

	n.logger.Info("watcher: fsnotify started", slog.String("root", n.root))

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("watcher: fsnotify stopped")
			return nil
		case <-n.done:
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			n.handleEvent(ctx, w, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			n.logger.Error("watcher: fsnotify error", slog.String("error", watchErr.Error()))
		}
	}
}

func (n *Notify) handleEvent(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event) {
	absPath := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(w, absPath); addErr != nil {
				n.logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath), slog.String("error", addErr.Error()))
			}
			n.emitDirContents(ctx, absPath)
			return
		}
	}

	if !strings.HasSuffix(absPath, ".md") {
		return
	}
	rel, relErr := filepath.Rel(n.root, absPath)
	if relErr != nil {
		return
	}
	id := filepath.ToSlash(rel)

	switch {
	case ev.Op&fsnotify.Create != 0:
		n.emit(ctx, Event{Kind: Created, Path: id})
	case ev.Op&fsnotify.Write != 0:
		if n.suppressed(id) {
			return
		}
		n.emit(ctx, Event{Kind: Modified, Path: id})
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename surfaces on the old path only; the new path arrives
		// as a separate create event.
		n.emit(ctx, Event{Kind: Deleted, Path: id})
	}
}

// emitDirContents reports .md files already present inside a newly
// created directory, which fsnotify does not deliver individually.
func (n *Notify) emitDirContents(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(n.root, path)
		if relErr != nil {
			return nil
		}
		n.emit(ctx, Event{Kind: Created, Path: filepath.ToSlash(rel)})
		return nil
	})
}

// NotifyInternalWrite suppresses the next write event for path within a
// short window.
func (n *Notify) NotifyInternalWrite(ctx context.Context, path string) {
	n.mu.Lock()
	n.internal[path] = time.Now()
	n.mu.Unlock()
}

func (n *Notify) suppressed(path string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	at, ok := n.internal[path]
	if !ok {
		return false
	}
	delete(n.internal, path)
	return time.Since(at) < internalWriteWindow
}

// Dispose stops the watch loop.
func (n *Notify) Dispose() {
	n.once.Do(func() { close(n.done) })
}

func (n *Notify) emit(ctx context.Context, ev Event) {
	if n.handler == nil {
		return
	}
	n.handler(ctx, ev)
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return fs.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}

// Verify *Notify satisfies ChangeSource at compile time.
var _ ChangeSource = (*Notify)(nil)
