// Package lifecycle keeps the coarse app-state flag the runtime reads at
// cold start and tracks whether a foreground instance is running.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/storage"
)

const (
	// Namespace holds the flag, apart from surface snapshots.
	Namespace = "app_state"
	// StateKey is the single key in Namespace.
	StateKey = "appState"
)

// StateFlag is one optional durable string. It is advisory: the runtime
// uses it to choose between resume and cold start.
type StateFlag struct {
	store   storage.Provider
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewStateFlag creates a StateFlag.
func NewStateFlag(store storage.Provider, logger *slog.Logger, m *metrics.Metrics) *StateFlag {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateFlag{store: store, logger: logger, metrics: m}
}

// Set creates or overwrites the flag.
func (f *StateFlag) Set(ctx context.Context, value string) error {
	if err := f.store.Put(ctx, Namespace, StateKey, value); err != nil {
		f.metrics.StoreError("put")
		return fmt.Errorf("lifecycle: set state: %w", err)
	}
	return nil
}

// Get returns the flag, if set.
func (f *StateFlag) Get(ctx context.Context) (string, bool, error) {
	v, ok, err := f.store.Get(ctx, Namespace, StateKey)
	if err != nil {
		f.metrics.StoreError("get")
		return "", false, fmt.Errorf("lifecycle: get state: %w", err)
	}
	return v, ok, nil
}

// Clear removes the flag. Failures are logged and dropped.
//
// Only OnTaskRemoved calls Clear; no other lifecycle callback may.
func (f *StateFlag) Clear(ctx context.Context) {
	if err := f.store.Delete(ctx, Namespace, StateKey); err != nil {
		f.metrics.StoreError("delete")
		f.logger.Warn("lifecycle: clear state failed", slog.String("error", err.Error()))
	}
}

// OnTaskRemoved handles the host's "task removed from recents" notification.
func (f *StateFlag) OnTaskRemoved(ctx context.Context) {
	f.logger.Info("lifecycle: task removed, clearing app state")
	f.Clear(ctx)
}
