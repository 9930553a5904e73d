package lifecycle

import (
	"log/slog"
	"sync/atomic"
)

// ForegroundTracker records the host's process-importance reports.
type ForegroundTracker struct {
	running atomic.Bool
	logger  *slog.Logger
}

// NewForegroundTracker creates a tracker that starts in the background state.
func NewForegroundTracker(logger *slog.Logger) *ForegroundTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForegroundTracker{logger: logger}
}

// SetForeground records whether a foreground instance is running.
func (t *ForegroundTracker) SetForeground(on bool) {
	if t.running.Swap(on) != on {
		t.logger.Debug("lifecycle: foreground changed", slog.Bool("foreground", on))
	}
}

// ForegroundRunning reports the last recorded state.
func (t *ForegroundTracker) ForegroundRunning() bool {
	return t.running.Load()
}
