package signals

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay lets a burst of events for one file finish before it is read.
const settleDelay = 50 * time.Millisecond

// Watch consumes signal files in dir until ctx is cancelled. Files already
// present when Watch starts are consumed first, in name order.
func Watch(ctx context.Context, dir string, h Handler, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("signals: watching", slog.String("dir", dir))
	consumeExisting(ctx, dir, h, logger)

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(name string) {
		pending[name] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("signals: stopped")
			return nil

		case <-settleCh:
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				consume(ctx, dir, name, h, logger)
			}
			pending = make(map[string]struct{})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isSignalFile(name) {
				continue
			}
			schedule(name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("signals: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func isSignalFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}

func consumeExisting(ctx context.Context, dir string, h Handler, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("signals: scan failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isSignalFile(e.Name()) {
			continue
		}
		consume(ctx, dir, e.Name(), h, logger)
	}
}

// consume reads, dispatches and removes one signal file. Malformed files are
// removed without dispatch.
func consume(ctx context.Context, dir, name string, h Handler, logger *slog.Logger) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("signals: read failed", slog.String("file", name), slog.String("error", err.Error()))
		}
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("signals: remove failed", slog.String("file", name), slog.String("error", err.Error()))
	}

	sig, err := Parse(data)
	if err != nil {
		logger.Warn("signals: dropping malformed signal", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	logger.Debug("signals: dispatch", slog.String("file", name), slog.String("signal", string(sig.Kind)))
	Dispatch(ctx, h, strings.TrimSuffix(name, ".json"), sig)
}
