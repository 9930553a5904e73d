package preview

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/starford/glance/internal/deeplink"
	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/models"
	"github.com/starford/glance/internal/storage"
)

// Namespace holds every surface binding plus the reserved reminders key.
const Namespace = "surface_previews"

// DueLayout formats reminder due times.
const DueLayout = "Mon Jan 2 15:04"

// Option configures a Renderer.
type Option func(*Renderer)

// WithPositionalItemIDs makes reminder rows use their position as id, for
// hosts that only accept positional ids.
func WithPositionalItemIDs(on bool) Option {
	return func(r *Renderer) { r.positionalIDs = on }
}

// WithLocation sets the zone used for due-time text.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithMetrics records render outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) { r.metrics = m }
}

// Renderer reads snapshots and builds descriptors. It never fails: store
// errors and malformed records produce a NoOp descriptor.
type Renderer struct {
	store         storage.Provider
	links         deeplink.Links
	logger        *slog.Logger
	metrics       *metrics.Metrics
	positionalIDs bool
	loc           *time.Location
}

// NewRenderer creates a Renderer.
func NewRenderer(store storage.Provider, links deeplink.Links, logger *slog.Logger, opts ...Option) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{store: store, links: links, logger: logger, loc: time.UTC}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render dispatches on the surface kind.
func (r *Renderer) Render(ctx context.Context, kind models.SurfaceKind, surfaceID int) Descriptor {
	if kind == models.SurfaceReminders {
		return r.RenderReminders(ctx, surfaceID)
	}
	return r.RenderSurface(ctx, surfaceID)
}

// RenderSurface renders the note preview bound to surfaceID.
func (r *Renderer) RenderSurface(ctx context.Context, surfaceID int) Descriptor {
	raw, ok := r.load(ctx, models.SurfaceNote, strconv.Itoa(surfaceID))
	if !ok {
		return r.noop(models.SurfaceNote, surfaceID)
	}
	p, err := models.DecodeNotePreview(raw)
	if err != nil {
		r.logger.Warn("preview: malformed note record",
			slog.Int("surface_id", surfaceID),
			slog.String("error", err.Error()))
		return r.noop(models.SurfaceNote, surfaceID)
	}

	r.metrics.Render(string(models.SurfaceNote), metrics.ResultRendered)
	return withFingerprint(Descriptor{
		SurfaceID: surfaceID,
		Kind:      models.SurfaceNote,
		Title:     p.Title,
		Headline:  p.Headline,
		Click:     &ClickTarget{Tag: models.OpenNote, URI: r.links.OpenNote(p.ContentID)},
		ItemCount: 0,
	})
}

// RenderReminders renders the shared reminder list for surfaceID.
func (r *Renderer) RenderReminders(ctx context.Context, surfaceID int) Descriptor {
	raw, ok := r.load(ctx, models.SurfaceReminders, models.RemindersKey)
	if !ok {
		return r.noop(models.SurfaceReminders, surfaceID)
	}
	list, err := models.DecodeReminderList(raw)
	if err != nil {
		r.logger.Warn("preview: malformed reminder list",
			slog.Int("surface_id", surfaceID),
			slog.String("error", err.Error()))
		return r.noop(models.SurfaceReminders, surfaceID)
	}

	items := make([]Item, len(list.Entries))
	for i, e := range list.Entries {
		id := e.ID
		if r.positionalIDs || id == "" {
			id = strconv.Itoa(i)
		}
		layout := LayoutCompact
		if e.HasDescription() {
			layout = LayoutDetailed
		}
		items[i] = Item{
			ID:          id,
			Position:    i,
			Layout:      layout,
			Title:       e.Title,
			Description: e.Description,
			DueAt:       e.DueAt,
			DueText:     time.UnixMilli(e.DueAt).In(r.loc).Format(DueLayout),
			Click:       ClickTarget{Tag: models.OpenReminder, URI: r.links.OpenReminder(e.ID)},
		}
	}

	r.metrics.Render(string(models.SurfaceReminders), metrics.ResultRendered)
	return withFingerprint(Descriptor{
		SurfaceID:  surfaceID,
		Kind:       models.SurfaceReminders,
		Items:      items,
		ItemCount:  len(items),
		EmptyState: len(items) == 0,
		Add:        &ClickTarget{Tag: models.NewReminder, URI: r.links.NewReminder()},
	})
}

func (r *Renderer) load(ctx context.Context, kind models.SurfaceKind, key string) (string, bool) {
	raw, ok, err := r.store.Get(ctx, Namespace, key)
	if err != nil {
		r.metrics.StoreError("get")
		r.logger.Warn("preview: store read failed",
			slog.String("kind", string(kind)),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", false
	}
	return raw, ok
}

func (r *Renderer) noop(kind models.SurfaceKind, surfaceID int) Descriptor {
	r.metrics.Render(string(kind), metrics.ResultNoOp)
	return NoOpDescriptor(kind, surfaceID)
}
