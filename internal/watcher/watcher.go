// Package watcher produces sync-trigger events for a single source file
// from two independent sources: filesystem notifications and a periodic
// fingerprint poll.
//
// Both sources run the same check: a Trigger is emitted only when the
// source file's fingerprint differs from the coordinator's last known
// one. The poll is the fallback for filesystems where notifications are
// unreliable or unavailable (network mounts, some containers).
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tablekit/sheetsync/internal/fingerprint"
)

// Reason identifies which trigger source observed the change.
type Reason int

const (
	// ReasonFileEvent is a filesystem modification notification.
	ReasonFileEvent Reason = iota
	// ReasonPoll is the periodic fingerprint check.
	ReasonPoll
)

// String returns a human-readable representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonFileEvent:
		return "file event"
	case ReasonPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// Trigger is a request to run a sync, emitted when the source file's
// fingerprint no longer matches the last known one. The coordinator
// re-fingerprints after the sync, so the trigger carries only its reason.
type Trigger struct {
	// Reason is the source that observed the change.
	Reason Reason
}

// Config holds configuration for a Watcher.
type Config struct {
	// SourcePath is the exact file to watch. Events for sibling files in
	// the same directory are ignored.
	SourcePath string

	// LastFingerprint returns the coordinator's last known source
	// fingerprint. The watcher only reads it; ownership stays with the
	// coordinator.
	LastFingerprint func() fingerprint.Fingerprint

	// Debounce suppresses duplicate OS-level notifications for a single
	// logical write (default 3s). Distinct from the coordinator's
	// cooldown, which spaces out whole sync attempts.
	Debounce time.Duration

	// PollInterval is how often the fallback poll fingerprints the source
	// (default 5s).
	PollInterval time.Duration
}

// DefaultDebounce and DefaultPollInterval are applied when the
// corresponding Config field is zero.
const (
	DefaultDebounce     = 3 * time.Second
	DefaultPollInterval = 5 * time.Second
)

// Watcher watches one source file and emits Triggers. It must be started
// with Start() before it will emit anything, and stopped with Stop(),
// which fully quiesces both goroutines before returning.
type Watcher struct {
	cfg      Config
	source   string // cleaned SourcePath
	fsw      *fsnotify.Watcher
	triggers chan Trigger
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// New creates a Watcher for the given configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.SourcePath == "" {
		return nil, fmt.Errorf("watcher: source path cannot be empty")
	}
	if cfg.LastFingerprint == nil {
		return nil, fmt.Errorf("watcher: LastFingerprint cannot be nil")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Watcher{
		cfg:      cfg,
		source:   filepath.Clean(cfg.SourcePath),
		triggers: make(chan Trigger, 16),
		done:     make(chan struct{}),
	}, nil
}

// Start subscribes to the source file's containing directory and starts
// the notification and poll goroutines.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory, not the file: editors and Excel replace the
	// file on save, which would drop a watch on the file itself.
	if err := fsw.Add(filepath.Dir(w.source)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.source), err)
	}

	w.fsw = fsw
	w.running = true
	w.wg.Add(2)
	go w.watchEvents()
	go w.pollLoop()

	return nil
}

// Stop stops both trigger sources and blocks until their goroutines have
// exited. No trigger is emitted after Stop returns. Stopping a watcher
// that is not running is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	// Join and close the trigger channel even when the fsnotify close
	// fails; both goroutines exit via done regardless, and consumers
	// rely on the channel closing to terminate.
	closeErr := w.fsw.Close()
	w.wg.Wait()
	close(w.triggers)

	if closeErr != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", closeErr)
	}
	return nil
}

// Triggers returns the channel that emits sync triggers. The channel is
// closed when the watcher is stopped.
func (w *Watcher) Triggers() <-chan Trigger {
	return w.triggers
}

// IsRunning reports whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// watchEvents consumes fsnotify events, filters them to the exact source
// path, debounces, and emits a trigger when the fingerprint changed.
func (w *Watcher) watchEvents() {
	defer w.wg.Done()

	var lastEvent time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.source {
				continue
			}

			now := time.Now()
			if !lastEvent.IsZero() && now.Sub(lastEvent) < w.cfg.Debounce {
				continue // duplicate notification for the same write
			}
			lastEvent = now

			w.compareAndTrigger(ReasonFileEvent)

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Notification errors are non-fatal: the poll loop still
			// covers the file.
		}
	}
}

// pollLoop fingerprints the source on a fixed interval. Cancellation is
// checked every cycle, so Stop never waits longer than one interval.
func (w *Watcher) pollLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case <-ticker.C:
			w.compareAndTrigger(ReasonPoll)
		}
	}
}

// compareAndTrigger emits a trigger iff the source file currently has a
// fingerprint that differs from the coordinator's last known one. An
// unreadable source is a soft condition and emits nothing.
func (w *Watcher) compareAndTrigger(reason Reason) {
	fp, err := fingerprint.File(w.source)
	if err != nil {
		return
	}
	if fp == w.cfg.LastFingerprint() {
		return
	}

	select {
	case w.triggers <- Trigger{Reason: reason}:
	case <-w.done:
	}
}
