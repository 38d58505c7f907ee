// Package watcher detects vault file changes and emits created,
// modified, and deleted events keyed by note id.
package watcher

import "context"

// Kind classifies a change event.
type Kind string

const (
	Created  Kind = "created"
	Modified Kind = "modified"
	Deleted  Kind = "deleted"
)

// Event is one detected vault change.
type Event struct {
	Kind Kind
	Path string
}

// Handler consumes change events.
type Handler func(ctx context.Context, ev Event)

// ChangeSource is the pluggable change-detection capability. The
// poll-diff Poller is the default; platforms with native notifications
// can use the fsnotify-backed Notify instead. Sources are explicitly
// constructed and injected by the composition root; there is no
// package-level instance.
type ChangeSource interface {
	// Init prepares the source without emitting events. For the Poller
	// this seeds the snapshot with one silent scan so pre-existing
	// files do not flood the handler with created events.
	Init(ctx context.Context) error
	// Start runs the source until ctx is cancelled.
	Start(ctx context.Context) error
	// NotifyInternalWrite records an engine-initiated write so the
	// source does not report it as an external modification.
	NotifyInternalWrite(ctx context.Context, path string)
	// Dispose releases resources. Safe to call more than once.
	Dispose()
}
