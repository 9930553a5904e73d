// Package host is the daemon's surface host capability: it knows which
// surfaces exist, which one is being configured, and pushes redraws and
// service state to the connected host UI.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/starford/glance/internal/apperr"
	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/models"
	"github.com/starford/glance/internal/preview"
	"github.com/starford/glance/internal/sse"
	"github.com/starford/glance/internal/storage"
)

// RegistryNamespace maps surface id to surface kind.
const RegistryNamespace = "surface_registry"

// InvalidSurfaceID is reported when no surface is being configured.
const InvalidSurfaceID = 0

// MinPinPlatform is the first platform version that can pin surfaces.
const MinPinPlatform = 26

// Publisher pushes events to connected host clients.
type Publisher interface {
	Publish(sse.Event)
	PublishRedraw(surfaceID int, fingerprint string, data interface{})
	PublishRemoved(ids []int)
}

// Capabilities describes what the platform behind the host supports.
type Capabilities struct {
	PlatformVersion int
	PinSupported    bool
}

// ForegroundServiceRequired reports whether background work must post a
// foreground notification.
func (c Capabilities) ForegroundServiceRequired() bool {
	return c.PlatformVersion >= MinPinPlatform
}

// Host tracks surfaces and fans out redraws.
type Host struct {
	store    storage.Provider
	renderer *preview.Renderer
	events   Publisher
	caps     Capabilities
	logger   *slog.Logger
	metrics  *metrics.Metrics

	configuring atomic.Int64
}

// New creates a Host. events may be nil, in which case nothing is pushed.
func New(store storage.Provider, renderer *preview.Renderer, events Publisher, caps Capabilities, logger *slog.Logger, m *metrics.Metrics) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		store:    store,
		renderer: renderer,
		events:   events,
		caps:     caps,
		logger:   logger,
		metrics:  m,
	}
}

// Capabilities returns the configured platform capabilities.
func (h *Host) Capabilities() Capabilities { return h.caps }

// Render is the host's redraw callback. The first render of a surface id
// registers it under kind.
func (h *Host) Render(ctx context.Context, kind models.SurfaceKind, surfaceID int) preview.Descriptor {
	h.register(ctx, kind, surfaceID)
	return h.renderer.Render(ctx, kind, surfaceID)
}

// RedrawSurfaces re-renders ids and pushes every non-noop descriptor.
func (h *Host) RedrawSurfaces(ctx context.Context, kind models.SurfaceKind, ids []int) {
	for _, id := range ids {
		d := h.Render(ctx, kind, id)
		if d.NoOp || h.events == nil {
			continue
		}
		h.events.PublishRedraw(id, d.Fingerprint, d)
	}
}

// RedrawAll re-renders every registered surface of kind.
func (h *Host) RedrawAll(ctx context.Context, kind models.SurfaceKind) {
	h.RedrawSurfaces(ctx, kind, h.Surfaces(ctx, kind))
}

// Surfaces lists registered surface ids of kind in ascending order.
func (h *Host) Surfaces(ctx context.Context, kind models.SurfaceKind) []int {
	entries, err := h.store.List(ctx, RegistryNamespace)
	if err != nil {
		h.storeFailed("list", err)
		return nil
	}
	ids := make([]int, 0, len(entries))
	for key, k := range entries {
		if models.SurfaceKind(k) != kind {
			continue
		}
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Forget drops removed surfaces from the registry and tells clients.
func (h *Host) Forget(ctx context.Context, ids []int) {
	for _, id := range ids {
		if err := h.store.Delete(ctx, RegistryNamespace, strconv.Itoa(id)); err != nil {
			h.storeFailed("delete", err, slog.Int("surface_id", id))
		}
		h.configuring.CompareAndSwap(int64(id), InvalidSurfaceID)
	}
	if h.events != nil {
		h.events.PublishRemoved(ids)
	}
}

// Configure marks surfaceID as the surface whose configuration UI is open.
func (h *Host) Configure(surfaceID int) error {
	if surfaceID <= 0 {
		return fmt.Errorf("%w: surface id must be positive", apperr.ErrInvalid)
	}
	h.configuring.Store(int64(surfaceID))
	return nil
}

// ConfiguringSurface returns the surface being configured, or
// InvalidSurfaceID.
func (h *Host) ConfiguringSurface() int {
	return int(h.configuring.Load())
}

// PinSurface asks the host to pin a new surface of kind. Platforms that
// cannot pin reject with a stable reason code.
func (h *Host) PinSurface(_ context.Context, kind models.SurfaceKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown surface kind %q", apperr.ErrInvalid, kind)
	}
	if h.caps.PlatformVersion < MinPinPlatform {
		return apperr.Reject(apperr.CodeUnsupportedPlatform,
			"pinning needs platform %d, host runs %d", MinPinPlatform, h.caps.PlatformVersion)
	}
	if !h.caps.PinSupported {
		return apperr.Reject(apperr.CodePinUnsupported, "surface host cannot pin surfaces")
	}
	if h.events != nil {
		h.events.Publish(sse.Event{Type: sse.TypePinRequested, Data: map[string]string{"kind": string(kind)}})
	}
	h.logger.Info("host: pin requested", slog.String("kind", string(kind)))
	return nil
}

func (h *Host) register(ctx context.Context, kind models.SurfaceKind, surfaceID int) {
	key := strconv.Itoa(surfaceID)
	cur, ok, err := h.store.Get(ctx, RegistryNamespace, key)
	if err != nil {
		h.storeFailed("get", err, slog.Int("surface_id", surfaceID))
		return
	}
	if ok && cur == string(kind) {
		return
	}
	if err := h.store.Put(ctx, RegistryNamespace, key, string(kind)); err != nil {
		h.storeFailed("put", err, slog.Int("surface_id", surfaceID))
	}
}

func (h *Host) storeFailed(op string, err error, attrs ...any) {
	h.metrics.StoreError(op)
	attrs = append(attrs, slog.String("op", op), slog.String("error", err.Error()))
	h.logger.Warn("host: registry operation failed", attrs...)
}
