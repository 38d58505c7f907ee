package watcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liminal-notes/vaultcore/internal/vault"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 30 * time.Second

// Poller infers change events by diffing periodic snapshots of adapter
// listings. It is the change source for backends without native
// file-system notifications.
//
// States: uninitialized, idle, scanning. Init seeds the snapshot with a
// silent scan; afterwards a timer tick or a foreground resume triggers
// a scan. Scan requests while a scan is running are dropped, never
// queued, so two diffs can never interleave.
type Poller struct {
	adapter  vault.Adapter
	interval time.Duration
	logger   *slog.Logger
	handler  Handler

	mu       sync.Mutex // guards snapshot
	snapshot map[string]int64

	scanning    atomic.Bool
	initialized atomic.Bool

	signals chan signal
	done    chan struct{}
	once    sync.Once
}

type signal int

const (
	sigResume signal = iota
	sigBackground
)

// NewPoller creates a poll-diff change source. handler receives the
// emitted events; interval <= 0 selects DefaultInterval.
func NewPoller(adapter vault.Adapter, interval time.Duration, handler Handler, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		adapter:  adapter,
		interval: interval,
		logger:   logger,
		handler:  handler,
		snapshot: make(map[string]int64),
		signals:  make(chan signal, 8),
		done:     make(chan struct{}),
	}
}

// Init performs one silent scan to seed the snapshot and moves the
// poller from uninitialized to idle.
func (p *Poller) Init(ctx context.Context) error {
	if p.initialized.Load() {
		return nil
	}
	if err := p.scan(ctx, true); err != nil {
		return err
	}
	p.initialized.Store(true)
	return nil
}

// Start runs the periodic scan loop until ctx is cancelled or Dispose
// is called. A resume signal triggers an immediate scan and restarts
// the timer to re-align cadence with user activity; a background signal
// stops the timer entirely.
func (p *Poller) Start(ctx context.Context) error {
	timer := time.NewTicker(p.interval)
	defer timer.Stop()
	active := true

	p.logger.Info("watcher: poller started", slog.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("watcher: poller stopped")
			return nil
		case <-p.done:
			p.logger.Info("watcher: poller disposed")
			return nil
		case <-timer.C:
			if active {
				p.runScan(ctx)
			}
		case sig := <-p.signals:
			switch sig {
			case sigResume:
				p.runScan(ctx)
				timer.Reset(p.interval)
				active = true
			case sigBackground:
				active = false
			}
		}
	}
}

// Resume signals a foreground transition: immediate scan plus timer
// restart.
func (p *Poller) Resume() {
	select {
	case p.signals <- sigResume:
	default:
	}
}

// Background signals that the host went inactive; polling pauses until
// the next Resume.
func (p *Poller) Background() {
	select {
	case p.signals <- sigBackground:
	default:
	}
}

// Dispose stops the poll loop.
func (p *Poller) Dispose() {
	p.once.Do(func() { close(p.done) })
}

// NotifyInternalWrite pre-updates the snapshot mtime for a path the
// engine itself just wrote, bypassing emission, so the next poll does
// not report the write as an external modification.
func (p *Poller) NotifyInternalWrite(ctx context.Context, path string) {
	st, err := p.adapter.Stat(ctx, path)
	if err != nil || !st.IsFile {
		return
	}
	p.mu.Lock()
	p.snapshot[path] = st.MtimeMs
	p.mu.Unlock()
}

// Scan triggers one diff cycle. Exposed for hosts that want an
// on-demand refresh; subject to the same at-most-one-scan guard.
func (p *Poller) Scan(ctx context.Context) error {
	return p.scan(ctx, false)
}

func (p *Poller) runScan(ctx context.Context) {
	if err := p.scan(ctx, false); err != nil {
		p.logger.Warn("watcher: scan failed", slog.String("error", err.Error()))
	}
}

func (p *Poller) scan(ctx context.Context, silent bool) error {
	if !p.scanning.CompareAndSwap(false, true) {
		// Already scanning; drop the request to avoid diff races.
		return nil
	}
	defer p.scanning.Store(false)

	entries, err := p.adapter.ListFiles(ctx, nil)
	if err != nil {
		return err
	}

	current := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.Type != vault.EntryFile {
			continue
		}
		current[e.ID] = e.MtimeMs
	}

	p.mu.Lock()
	prev := p.snapshot
	p.snapshot = current
	p.mu.Unlock()

	if silent {
		return nil
	}

	for id, mtime := range current {
		prevMtime, ok := prev[id]
		switch {
		case !ok:
			p.emit(ctx, Event{Kind: Created, Path: id})
		case mtime > prevMtime:
			p.emit(ctx, Event{Kind: Modified, Path: id})
		}
	}
	for id := range prev {
		if _, ok := current[id]; !ok {
			p.emit(ctx, Event{Kind: Deleted, Path: id})
		}
	}
	return nil
}

func (p *Poller) emit(ctx context.Context, ev Event) {
	if p.handler == nil {
		return
	}
	p.handler(ctx, ev)
}

// Verify *Poller satisfies ChangeSource at compile time.
var _ ChangeSource = (*Poller)(nil)
