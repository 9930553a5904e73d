package host

import (
	"log/slog"
	"sync"

	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/sse"
)

// WakeLock is a reference-counted in-process wake lock. The held state is
// exported as a gauge.
type WakeLock struct {
	mu      sync.Mutex
	holders map[string]struct{}
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWakeLock creates an unheld WakeLock.
func NewWakeLock(logger *slog.Logger, m *metrics.Metrics) *WakeLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &WakeLock{holders: make(map[string]struct{}), logger: logger, metrics: m}
}

// Acquire takes the lock for tag.
func (w *WakeLock) Acquire(tag string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.holders[tag] = struct{}{}
	if len(w.holders) == 1 {
		w.metrics.WakeLockHeld(true)
		w.logger.Debug("host: wake lock acquired", slog.String("tag", tag))
	}
}

// Release drops tag's hold. Releasing an unknown tag is a no-op.
func (w *WakeLock) Release(tag string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.holders[tag]; !ok {
		return
	}
	delete(w.holders, tag)
	if len(w.holders) == 0 {
		w.metrics.WakeLockHeld(false)
		w.logger.Debug("host: wake lock released", slog.String("tag", tag))
	}
}

// Held reports whether any holder remains.
func (w *WakeLock) Held() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.holders) > 0
}

// ForegroundNotifier announces foreground-service state to host clients.
type ForegroundNotifier struct {
	events Publisher
	title  string
}

// NewForegroundNotifier creates a notifier whose notification shows title.
func NewForegroundNotifier(events Publisher, title string) *ForegroundNotifier {
	return &ForegroundNotifier{events: events, title: title}
}

// StartForeground posts the notification.
func (n *ForegroundNotifier) StartForeground(runID string) {
	n.publish(runID, true)
}

// StopForeground removes the notification.
func (n *ForegroundNotifier) StopForeground(runID string) {
	n.publish(runID, false)
}

func (n *ForegroundNotifier) publish(runID string, active bool) {
	if n.events == nil {
		return
	}
	n.events.Publish(sse.Event{Type: sse.TypeForeground, Data: map[string]any{
		"run_id": runID,
		"active": active,
		"title":  n.title,
	}})
}
