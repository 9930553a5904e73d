package bridge

import (
	"log/slog"
	"time"

	"github.com/starford/glance/internal/bootsync"
	"github.com/starford/glance/internal/deeplink"
	"github.com/starford/glance/internal/host"
	"github.com/starford/glance/internal/lifecycle"
	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/preview"
	"github.com/starford/glance/internal/storage"
	"github.com/starford/glance/internal/surfaceservice"
)

// Deps are the inputs Wire needs. Zero values select defaults; a nil
// Runtime disables boot sync.
type Deps struct {
	Store         storage.Provider
	Links         deeplink.Links
	Events        host.Publisher
	Capabilities  host.Capabilities
	PositionalIDs bool
	Location      *time.Location
	Runtime       bootsync.HeadlessRuntime
	BootTimeout   time.Duration
	BootTask      string
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Wire builds every component over one store. Call Components.Close on
// shutdown.
func Wire(d Deps) Components {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	links := d.Links
	if links.Base() == "" {
		links = deeplink.NewLinks("")
	}

	renderer := preview.NewRenderer(d.Store, links, logger,
		preview.WithPositionalItemIDs(d.PositionalIDs),
		preview.WithLocation(d.Location),
		preview.WithMetrics(d.Metrics),
	)
	h := host.New(d.Store, renderer, d.Events, d.Capabilities, logger, d.Metrics)
	fg := lifecycle.NewForegroundTracker(logger)

	bootOpts := []bootsync.Option{
		bootsync.WithTimeout(d.BootTimeout),
		bootsync.WithTaskName(d.BootTask),
		bootsync.WithMetrics(d.Metrics),
	}
	if d.Capabilities.ForegroundServiceRequired() {
		bootOpts = append(bootOpts, bootsync.WithForegroundNotifier(host.NewForegroundNotifier(d.Events, "Syncing notes")))
	}

	return Components{
		Surfaces:   surfaceservice.NewService(d.Store, h, logger, d.Metrics),
		Router:     deeplink.NewRouter(links, logger, d.Metrics),
		State:      lifecycle.NewStateFlag(d.Store, logger, d.Metrics),
		Foreground: fg,
		Host:       h,
		Boot:       bootsync.NewTask(d.Runtime, fg, host.NewWakeLock(logger, d.Metrics), logger, bootOpts...),
		Logger:     logger,
	}
}

// Close stops background work. The store is owned by the caller.
func (c Components) Close() {
	if c.Boot != nil {
		c.Boot.Close()
	}
}
