// Package coordinator serializes sync requests from every trigger source
// and owns the sync state machine.
//
// The coordinator is the single entry point for manual syncs, filesystem
// notifications, and the periodic poll. It guarantees:
//
//   - at most one reconciliation in flight per coordinator (Idle → Running
//     → Idle; a request while Running is dropped silently)
//   - a minimum spacing between attempts (cooldown), measured from the
//     start of the previous attempt, which absorbs bursts of filesystem
//     events for a single logical edit
//   - every failure is caught here, logged, and converted to a
//     non-crashing result; the coordinator always returns to Idle
//
// All mutable sync state lives in the coordinator; the watcher and the
// reconciler never touch it directly.
package coordinator

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/tablekit/sheetsync/internal/fingerprint"
	"github.com/tablekit/sheetsync/internal/reconcile"
	"github.com/tablekit/sheetsync/internal/table"
	"github.com/tablekit/sheetsync/internal/watcher"
)

// ErrFileNotFound indicates auto-sync was requested while the source or
// target file does not exist on disk. Auto-sync stays off.
var ErrFileNotFound = errors.New("file does not exist")

// ErrPathsNotSet indicates a sync was requested before source and target
// paths were supplied.
var ErrPathsNotSet = errors.New("source and target paths not set")

// ErrAutoSyncActive indicates an operation that requires auto-sync to be
// off, such as changing paths, was attempted while it is on.
var ErrAutoSyncActive = errors.New("auto-sync is active")

// SkipReason says why a SyncOnce call did not run a reconciliation.
type SkipReason string

const (
	// SkipCooldown means the call arrived within the cooldown window of
	// the previous attempt.
	SkipCooldown SkipReason = "cooldown"
	// SkipBusy means a reconciliation was already running.
	SkipBusy SkipReason = "already running"
)

// Outcome is the result of a single SyncOnce call.
type Outcome struct {
	// UpdatedCells is the number of target cells changed. Zero for a
	// skipped call or a no-op reconciliation.
	UpdatedCells int
	// Skipped is true when no reconciliation ran.
	Skipped bool
	// SkipReason is set when Skipped is true.
	SkipReason SkipReason
	// Elapsed is how long the reconciliation took.
	Elapsed time.Duration
}

// Run describes one executed sync attempt, for recording in a journal.
type Run struct {
	StartedAt    time.Time
	Duration     time.Duration
	UpdatedCells int
	Outcome      string
	Detail       string
}

// Run outcome values.
const (
	RunSynced = "synced"
	RunNoop   = "no-op"
	RunFailed = "failed"
)

// Recorder persists executed sync attempts. Skipped calls are not
// recorded; no attempt was made.
type Recorder interface {
	RecordRun(run Run) error
}

// EventSink receives sync lifecycle notifications, for broadcasting to
// external observers. Implementations must not block.
type EventSink interface {
	OnSyncStarted()
	OnSyncComplete(updatedCells int, elapsed time.Duration)
	OnSyncSkipped(reason string)
	OnSyncFailed(err error)
}

// ReconcileFunc runs one reconciliation from source to target.
type ReconcileFunc func(sourcePath, targetPath string) (reconcile.Result, error)

// SyncState is a snapshot of the coordinator's state.
type SyncState struct {
	// Active is true while auto-sync is watching the source.
	Active bool
	// SourcePath and TargetPath are the current file paths; empty until
	// supplied.
	SourcePath string
	TargetPath string
	// LastFingerprint is the source fingerprint recorded by the most
	// recent successful sync (or when paths were set).
	LastFingerprint fingerprint.Fingerprint
	// LastSyncTime is when the most recent successful sync finished.
	// Monotonically non-decreasing.
	LastSyncTime time.Time
}

// Config holds configuration for a Coordinator.
type Config struct {
	// Cooldown is the minimum spacing between sync attempts, measured
	// from the start of the previous attempt (default 2s).
	Cooldown time.Duration

	// Debounce and PollInterval are passed through to the watcher when
	// auto-sync is enabled (defaults 3s and 5s).
	Debounce     time.Duration
	PollInterval time.Duration

	// Logger for coordinator activity (default: stderr logger).
	Logger *log.Logger

	// Reconcile runs one reconciliation (default: reconcile.New).
	// Injectable for tests.
	Reconcile ReconcileFunc

	// Recorder, when non-nil, persists every executed attempt.
	Recorder Recorder

	// Events, when non-nil, receives sync lifecycle notifications.
	Events EventSink
}

// DefaultCooldown is applied when Config.Cooldown is zero.
const DefaultCooldown = 2 * time.Second

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Cooldown:     DefaultCooldown,
		Debounce:     watcher.DefaultDebounce,
		PollInterval: watcher.DefaultPollInterval,
		Logger:       log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Coordinator owns the sync state machine. Create one with New, supply
// paths with SetPaths, and drive it with SyncOnce / SetAutoSync. Stop
// releases watcher resources deterministically.
type Coordinator struct {
	cfg       *Config
	logger    *log.Logger
	reconcile ReconcileFunc
	activity  *ActivityLog

	mu              sync.Mutex
	sourcePath      string
	targetPath      string
	active          bool
	running         bool
	lastAttempt     time.Time
	lastSyncTime    time.Time
	lastFingerprint fingerprint.Fingerprint

	watch      *watcher.Watcher
	consumerWG sync.WaitGroup
}

// New creates a Coordinator. A nil or partial config is filled with
// defaults.
func New(cfg *Config) *Coordinator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	c := &Coordinator{
		cfg:       cfg,
		logger:    cfg.Logger,
		reconcile: cfg.Reconcile,
		activity:  NewActivityLog(activityCapacity),
	}
	if c.reconcile == nil {
		c.reconcile = reconcile.New(cfg.Logger).Reconcile
	}
	return c
}

// SetPaths supplies the source and target file paths. The current source
// fingerprint is recorded (best effort) so a freshly configured watcher
// does not fire on an unchanged file.
//
// Paths cannot change while auto-sync is active; disable it first.
func (c *Coordinator) SetPaths(sourcePath, targetPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return ErrAutoSyncActive
	}

	c.sourcePath = sourcePath
	c.targetPath = targetPath
	if fp, err := fingerprint.File(sourcePath); err == nil {
		c.lastFingerprint = fp
	}
	return nil
}

// State returns a snapshot of the coordinator's state.
func (c *Coordinator) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SyncState{
		Active:          c.active,
		SourcePath:      c.sourcePath,
		TargetPath:      c.targetPath,
		LastFingerprint: c.lastFingerprint,
		LastSyncTime:    c.lastSyncTime,
	}
}

// Activity returns the bounded activity log, most recent first.
func (c *Coordinator) Activity() []string {
	return c.activity.Entries()
}

// SyncOnce runs one reconciliation if the cooldown has elapsed and no
// reconciliation is already running.
//
// An early or overlapping call returns a skipped Outcome, not an error.
// Failures are logged with their reason and returned; they never prevent
// future attempts.
func (c *Coordinator) SyncOnce() (Outcome, error) {
	c.mu.Lock()

	if c.sourcePath == "" || c.targetPath == "" {
		c.mu.Unlock()
		return Outcome{}, ErrPathsNotSet
	}
	if c.running {
		// At most one reconciliation per target; drop silently.
		c.mu.Unlock()
		return Outcome{Skipped: true, SkipReason: SkipBusy}, nil
	}
	now := time.Now()
	if !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.cfg.Cooldown {
		c.mu.Unlock()
		c.notifySkipped(string(SkipCooldown))
		return Outcome{Skipped: true, SkipReason: SkipCooldown}, nil
	}

	// The running flag must be set before any I/O starts and cleared
	// after it completes or fails.
	c.running = true
	c.lastAttempt = now
	source, target := c.sourcePath, c.targetPath
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.logf("Starting sync...")
	c.notifyStarted()

	start := time.Now()
	res, err := c.reconcile(source, target)
	elapsed := time.Since(start)

	if err != nil {
		c.logf("Sync failed: %s", failureMessage(err))
		c.notifyFailed(err)
		c.record(Run{
			StartedAt: start,
			Duration:  elapsed,
			Outcome:   RunFailed,
			Detail:    err.Error(),
		})
		return Outcome{Elapsed: elapsed}, err
	}

	// Record the fingerprint the sync was based on, so the watcher stops
	// re-triggering for this change.
	fp, fpErr := fingerprint.File(source)

	c.mu.Lock()
	if fpErr == nil {
		c.lastFingerprint = fp
	}
	if done := time.Now(); done.After(c.lastSyncTime) {
		c.lastSyncTime = done
	}
	c.mu.Unlock()

	outcome := RunNoop
	if res.UpdatedCells > 0 {
		outcome = RunSynced
		c.logf("Synced %d cells in %.2f seconds", res.UpdatedCells, elapsed.Seconds())
	} else {
		c.logf("No changes detected in source file")
	}
	c.notifyComplete(res.UpdatedCells, elapsed)
	c.record(Run{
		StartedAt:    start,
		Duration:     elapsed,
		UpdatedCells: res.UpdatedCells,
		Outcome:      outcome,
	})

	return Outcome{UpdatedCells: res.UpdatedCells, Elapsed: elapsed}, nil
}

// SetAutoSync enables or disables automatic syncing.
//
// Enabling requires both paths to exist on disk and starts the watcher
// plus a single goroutine that consumes its triggers serially. Disabling
// stops the watcher and does not return until it has fully quiesced, so
// no trigger fires afterwards. Both directions are idempotent.
func (c *Coordinator) SetAutoSync(enable bool) error {
	if enable {
		return c.enableAutoSync()
	}
	return c.disableAutoSync()
}

// Stop disables auto-sync and releases watcher resources. Safe to call
// multiple times.
func (c *Coordinator) Stop() error {
	return c.disableAutoSync()
}

func (c *Coordinator) enableAutoSync() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil
	}
	if c.sourcePath == "" || c.targetPath == "" {
		return ErrPathsNotSet
	}
	for _, path := range []string{c.sourcePath, c.targetPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
	}

	w, err := watcher.New(watcher.Config{
		SourcePath:      c.sourcePath,
		Debounce:        c.cfg.Debounce,
		PollInterval:    c.cfg.PollInterval,
		LastFingerprint: c.snapshotFingerprint,
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	c.watch = w
	c.active = true

	c.consumerWG.Add(1)
	go c.consumeTriggers(w)

	c.logf("Auto-sync started. Monitoring for changes...")
	return nil
}

func (c *Coordinator) disableAutoSync() error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = false
	w := c.watch
	c.watch = nil
	c.mu.Unlock()

	// Stop joins the watcher goroutines and closes the trigger channel,
	// which ends the consumer. The consumer must be joined even when
	// Stop reports an error, or it would leak on a live channel.
	stopErr := w.Stop()
	c.consumerWG.Wait()

	c.logf("Auto-sync stopped")
	return stopErr
}

// consumeTriggers is the single goroutine through which every watcher
// trigger reaches SyncOnce; seriality here plus the coordinator's own
// mutual exclusion keeps trigger sources from racing.
func (c *Coordinator) consumeTriggers(w *watcher.Watcher) {
	defer c.consumerWG.Done()

	for trigger := range w.Triggers() {
		c.logf("Change detected (%s) - auto syncing...", trigger.Reason)
		if _, err := c.SyncOnce(); err != nil {
			// Already logged inside SyncOnce; keep consuming.
			continue
		}
	}
}

// snapshotFingerprint is the read-only accessor handed to the watcher.
func (c *Coordinator) snapshotFingerprint() fingerprint.Fingerprint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFingerprint
}

// logf writes to both the process logger and the bounded activity log.
func (c *Coordinator) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Print(msg)
	c.activity.Append(msg)
}

func (c *Coordinator) record(run Run) {
	if c.cfg.Recorder == nil {
		return
	}
	if err := c.cfg.Recorder.RecordRun(run); err != nil {
		c.logger.Printf("Warning: failed to record sync run: %v", err)
	}
}

func (c *Coordinator) notifyStarted() {
	if c.cfg.Events != nil {
		c.cfg.Events.OnSyncStarted()
	}
}

func (c *Coordinator) notifyComplete(cells int, elapsed time.Duration) {
	if c.cfg.Events != nil {
		c.cfg.Events.OnSyncComplete(cells, elapsed)
	}
}

func (c *Coordinator) notifySkipped(reason string) {
	if c.cfg.Events != nil {
		c.cfg.Events.OnSyncSkipped(reason)
	}
}

func (c *Coordinator) notifyFailed(err error) {
	if c.cfg.Events != nil {
		c.cfg.Events.OnSyncFailed(err)
	}
}

// failureMessage maps known failure types to actionable messages.
func failureMessage(err error) string {
	var parseErr *table.ParseError
	switch {
	case errors.Is(err, reconcile.ErrTargetLocked):
		return "target file is locked - close it in Excel before syncing"
	case errors.As(err, &parseErr):
		return fmt.Sprintf("malformed spreadsheet: %v", parseErr)
	case errors.Is(err, fingerprint.ErrNotFound):
		return fmt.Sprintf("file unavailable: %v", err)
	default:
		return err.Error()
	}
}
