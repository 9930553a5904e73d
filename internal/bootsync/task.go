// Package bootsync runs the bounded background sync job started at device boot.
package bootsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/glance/internal/apperr"
	"github.com/starford/glance/internal/metrics"
)

// DefaultTimeout bounds a single run.
const DefaultTimeout = 30 * time.Second

// DefaultTask is the routine the headless runtime is asked to run.
const DefaultTask = "boot-sync"

// ErrDisabled is returned when no headless runtime is configured.
var ErrDisabled = fmt.Errorf("bootsync: %w: no headless runtime configured", apperr.ErrInvalid)

// HeadlessRuntime runs one named routine of the embedded runtime without UI.
type HeadlessRuntime interface {
	RunTask(ctx context.Context, task, runID string) error
}

// ProcessInspector reports whether a foreground app instance is running.
type ProcessInspector interface {
	ForegroundRunning() bool
}

// WakeLock keeps the device awake while held.
type WakeLock interface {
	Acquire(tag string)
	Release(tag string)
}

// ForegroundNotifier posts and removes the foreground-service notification.
type ForegroundNotifier interface {
	StartForeground(runID string)
	StopForeground(runID string)
}

// Option configures a Task.
type Option func(*Task)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Task) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithTaskName overrides DefaultTask.
func WithTaskName(name string) Option {
	return func(t *Task) {
		if name != "" {
			t.task = name
		}
	}
}

// WithForegroundNotifier makes every run post a foreground notification.
// Only platforms that require it should set one.
func WithForegroundNotifier(n ForegroundNotifier) Option {
	return func(t *Task) { t.notifier = n }
}

// WithMetrics records run outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Task) { t.metrics = m }
}

// Task is single-flight: at most one run is active at a time.
type Task struct {
	runtime   HeadlessRuntime
	inspector ProcessInspector
	wake      WakeLock
	notifier  ForegroundNotifier
	timeout   time.Duration
	task      string
	logger    *slog.Logger
	metrics   *metrics.Metrics

	running atomic.Bool
	wg      sync.WaitGroup
	base    context.Context
	cancel  context.CancelFunc
}

// NewTask creates a Task. runtime may be nil, which disables runs.
func NewTask(runtime HeadlessRuntime, inspector ProcessInspector, wake WakeLock, logger *slog.Logger, opts ...Option) *Task {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	t := &Task{
		runtime:   runtime,
		inspector: inspector,
		wake:      wake,
		timeout:   DefaultTimeout,
		task:      DefaultTask,
		logger:    logger,
		base:      base,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether a headless runtime is configured.
func (t *Task) Enabled() bool { return t.runtime != nil }

// OnBootCompleted handles the boot-completed signal. The job starts in the
// background unless a foreground instance is running or boot sync is
// disabled. It reports whether a job was started.
func (t *Task) OnBootCompleted() bool {
	if !t.Enabled() {
		t.logger.Info("bootsync: disabled, ignoring boot signal")
		return false
	}
	if t.inspector != nil && t.inspector.ForegroundRunning() {
		t.metrics.BootRun(metrics.BootSkipped)
		t.logger.Info("bootsync: foreground instance running, skipping")
		return false
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if _, err := t.Run(t.base); err != nil {
			t.logger.Warn("bootsync: background run ended with error", slog.String("error", err.Error()))
		}
	}()
	return true
}

// Run executes one job synchronously and returns its run id. The job is
// cancelled after the configured timeout; the wake lock and notification are
// released on every exit path, including a panic in the runtime.
func (t *Task) Run(ctx context.Context) (runID string, err error) {
	if !t.Enabled() {
		return "", ErrDisabled
	}
	if !t.running.CompareAndSwap(false, true) {
		t.metrics.BootRun(metrics.BootBusy)
		return "", fmt.Errorf("bootsync: %w: a run is already active", apperr.ErrBusy)
	}
	defer t.running.Store(false)

	runID = ulid.Make().String()
	logger := t.logger.With(slog.String("run_id", runID), slog.String("task", t.task))

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	t.acquire(runID)
	defer func() {
		t.release(runID)
		t.finish(ctx, logger, err)
	}()

	logger.Info("bootsync: run started", slog.Duration("timeout", t.timeout))

	// The runtime may ignore ctx; the job ends at the deadline either way and
	// a late result is discarded.
	rt, task := t.runtime, t.task
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("bootsync: runtime panic: %v", r)
			}
		}()
		done <- rt.RunTask(ctx, task, runID)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		logger.Warn("bootsync: runtime still running at cancellation, abandoning it")
		err = ctx.Err()
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("bootsync: %w after %s", apperr.ErrTimeout, t.timeout)
	}
	return runID, err
}

// Close cancels background runs and waits for them to release resources.
func (t *Task) Close() {
	t.cancel()
	t.wg.Wait()
}

func (t *Task) acquire(runID string) {
	if t.wake != nil {
		t.wake.Acquire(runID)
	}
	if t.notifier != nil {
		t.notifier.StartForeground(runID)
	}
}

func (t *Task) release(runID string) {
	if t.notifier != nil {
		t.notifier.StopForeground(runID)
	}
	if t.wake != nil {
		t.wake.Release(runID)
	}
}

func (t *Task) finish(ctx context.Context, logger *slog.Logger, err error) {
	switch {
	case err == nil:
		t.metrics.BootRun(metrics.BootCompleted)
		logger.Info("bootsync: run completed")
	case errors.Is(err, apperr.ErrTimeout):
		t.metrics.BootRun(metrics.BootTimeout)
		logger.Error("bootsync: run timed out", slog.String("error", err.Error()))
	default:
		t.metrics.BootRun(metrics.BootFailed)
		logger.Error("bootsync: run failed",
			slog.String("error", err.Error()),
			slog.Bool("cancelled", ctx.Err() != nil))
	}
}
